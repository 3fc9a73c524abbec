// Package artifact keeps rendered plot images addressable by id.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("artifact not found")

// Store persists artifact bytes under a key.
type Store interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Tiered writes to a primary store and every mirror, and reads from the
// first store that has the key.
type Tiered struct {
	primary Store
	mirrors []Store
}

// NewTiered returns a Tiered store. Mirrors may be empty.
func NewTiered(primary Store, mirrors ...Store) *Tiered {
	return &Tiered{primary: primary, mirrors: mirrors}
}

// Put stores content in the primary, then in each mirror. A mirror failure
// does not undo the primary write; it is reported as *MirrorError.
func (t *Tiered) Put(ctx context.Context, key string, content []byte) error {
	if err := t.primary.Put(ctx, key, content); err != nil {
		return err
	}
	var errs []error
	for _, m := range t.mirrors {
		if err := m.Put(ctx, key, content); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &MirrorError{Key: key, Err: errors.Join(errs...)}
	}
	return nil
}

// Get returns the content for key from the first store holding it.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := t.primary.Get(ctx, key)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return data, err
	}
	for _, m := range t.mirrors {
		data, err := m.Get(ctx, key)
		if err == nil {
			// warm the primary so later reads stay local
			_ = t.primary.Put(ctx, key, data)
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// MirrorError reports a failed mirror write after a successful primary write.
type MirrorError struct {
	Key string
	Err error
}

func (e *MirrorError) Error() string { return fmt.Sprintf("mirror %s: %v", e.Key, e.Err) }
func (e *MirrorError) Unwrap() error { return e.Err }

func validKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	return key, nil
}
