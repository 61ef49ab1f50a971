package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ResponseCache stores raw API responses by key. Implementations are safe
// for concurrent use.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store is a ResponseCache that can also be inspected and maintained
type Store interface {
	ResponseCache
	Delete(ctx context.Context, key string) error
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Stats describes a store's occupancy
type Stats struct {
	Path    string
	Entries int
	Bytes   int64
	Limit   int64
}

// Tiered keeps recently used entries in process memory in front of a
// persistent store. Writes go through to the store first.
type Tiered struct {
	back   Store
	memory *gocache.Cache
}

// NewTiered wraps back with an in-memory tier whose entries expire after ttl
func NewTiered(back Store, ttl time.Duration) *Tiered {
	return &Tiered{
		back:   back,
		memory: gocache.New(ttl, ttl*2),
	}
}

// Get checks memory, then the store; store hits are promoted to memory
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := t.memory.Get(key); ok {
		return v.([]byte), true, nil
	}

	value, ok, err := t.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	t.memory.SetDefault(key, value)
	return value, true, nil
}

// Put writes through to the store, then memory
func (t *Tiered) Put(ctx context.Context, key string, value []byte) error {
	if err := t.back.Put(ctx, key, value); err != nil {
		return err
	}
	t.memory.SetDefault(key, value)
	return nil
}

// Delete removes key from both tiers
func (t *Tiered) Delete(ctx context.Context, key string) error {
	t.memory.Delete(key)
	return t.back.Delete(ctx, key)
}

// Stats reports the persistent tier
func (t *Tiered) Stats(ctx context.Context) (Stats, error) {
	return t.back.Stats(ctx)
}

// Clear empties both tiers
func (t *Tiered) Clear(ctx context.Context) error {
	t.memory.Flush()
	return t.back.Clear(ctx)
}

// Close closes the persistent tier
func (t *Tiered) Close() error {
	t.memory.Flush()
	return t.back.Close()
}

// Nop never stores anything; every Get misses
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Put(ctx context.Context, key string, value []byte) error   { return nil }
func (Nop) Delete(ctx context.Context, key string) error              { return nil }
func (Nop) Stats(ctx context.Context) (Stats, error)                  { return Stats{}, nil }
func (Nop) Clear(ctx context.Context) error                           { return nil }
func (Nop) Close() error                                              { return nil }

// Open builds the configured store: disabled yields Nop, otherwise SQLite
// with an in-memory tier when memoryTTL is positive
func Open(path string, sizeLimit int64, memoryTTL time.Duration, disabled bool) (Store, error) {
	if disabled {
		return Nop{}, nil
	}
	back, err := NewSQLiteStore(path, sizeLimit)
	if err != nil {
		return nil, err
	}
	if memoryTTL <= 0 {
		return back, nil
	}
	return NewTiered(back, memoryTTL), nil
}
