package artifact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, string, []byte) error { return f.err }
func (f failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, ErrNotFound
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore(2)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, k, []byte(k)); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected eviction of a, got %v", err)
	}
	got, err := s.Get(ctx, "c")
	if err != nil || string(got) != "c" {
		t.Fatalf("Get c = %q, %v", got, err)
	}
	if err := s.Put(ctx, "  ", []byte("x")); err == nil {
		t.Fatal("expected error for blank key")
	}
}

func TestMemoryStoreCopiesInput(t *testing.T) {
	ctx := context.Background()
	s, _ := NewMemoryStore(0)
	buf := []byte("png")
	_ = s.Put(ctx, "k", buf)
	buf[0] = 'X'
	got, _ := s.Get(ctx, "k")
	if string(got) != "png" {
		t.Fatalf("stored bytes changed: %q", got)
	}
}

func TestTieredReadsThroughMirrors(t *testing.T) {
	ctx := context.Background()
	primary, _ := NewMemoryStore(4)
	mirror, _ := NewMemoryStore(4)
	_ = mirror.Put(ctx, "remote", []byte("img"))
	ts := NewTiered(primary, mirror)

	got, err := ts.Get(ctx, "remote")
	if err != nil || string(got) != "img" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := primary.Get(ctx, "remote"); err != nil {
		t.Fatalf("primary not warmed: %v", err)
	}
	if _, err := ts.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTieredMirrorFailure(t *testing.T) {
	ctx := context.Background()
	primary, _ := NewMemoryStore(4)
	ts := NewTiered(primary, failingStore{err: errors.New("bucket offline")})
	err := ts.Put(ctx, "k", []byte("v"))
	var me *MirrorError
	if !errors.As(err, &me) || !strings.Contains(err.Error(), "bucket offline") {
		t.Fatalf("expected mirror error, got %v", err)
	}
	if got, err := ts.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Fatalf("primary write should survive: %q %v", got, err)
	}
}

func TestNewS3StoreValidation(t *testing.T) {
	cases := []S3Config{
		{},
		{Endpoint: "localhost:9000"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"},
	}
	for _, c := range cases {
		if _, err := NewS3Store(c); err == nil {
			t.Fatalf("expected error for %+v", c)
		}
	}
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "tabletalk"})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if got := s.objectKey("abc"); got != "plots/abc.png" {
		t.Fatalf("objectKey = %q", got)
	}
}

type flakyBuckets struct {
	failures int
	exists   bool
	calls    int
	made     int
}

func (f *flakyBuckets) BucketExists(ctx context.Context, _ string) (bool, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.failures > 0 {
		f.failures--
		return false, errors.New("connection reset")
	}
	return f.exists, nil
}

func (f *flakyBuckets) MakeBucket(ctx context.Context, _ string, _ minio.MakeBucketOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.made++
	return nil
}

func TestEnsureBucketRetriesAfterFailure(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "tabletalk"})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	fb := &flakyBuckets{failures: 1}
	s.buckets = fb

	if err := s.ensureBucket(context.Background()); err == nil {
		t.Fatal("first attempt should fail")
	}
	if err := s.ensureBucket(context.Background()); err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if err := s.ensureBucket(context.Background()); err != nil {
		t.Fatalf("ready bucket: %v", err)
	}
	if fb.calls != 2 || fb.made != 1 {
		t.Fatalf("calls=%d made=%d, want 2 and 1", fb.calls, fb.made)
	}
}

func TestEnsureBucketIgnoresCallerCancel(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "tabletalk"})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	fb := &flakyBuckets{exists: true}
	s.buckets = fb

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.ensureBucket(ctx); err != nil {
		t.Fatalf("canceled request should not fail bucket init: %v", err)
	}
	if fb.made != 0 {
		t.Fatalf("existing bucket should not be created, made=%d", fb.made)
	}
}
