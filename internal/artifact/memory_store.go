package artifact

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of images kept in memory.
const DefaultCacheSize = 16

// MemoryStore is a bounded, thread-safe store evicting least recently used keys.
type MemoryStore struct {
	cache *lru.Cache[string, []byte]
}

// NewMemoryStore keeps up to size entries; size <= 0 uses DefaultCacheSize.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return &MemoryStore{cache: c}, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, content []byte) error {
	key, err := validKey(key)
	if err != nil {
		return err
	}
	buf := make([]byte, len(content))
	copy(buf, content)
	s.cache.Add(key, buf)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int { return s.cache.Len() }
