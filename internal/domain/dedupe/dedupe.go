// Package dedupe coalesces recompute requests for the same report.
package dedupe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 10_000

// Deduper tracks report ids that already have a recompute pending.
type Deduper interface {
	// SeenAndRecord atomically checks if id is pending and records it if not.
	// Returns true if a recompute for id is already pending.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord clears id. Workers call it when they pick the job up, and
	// producers call it when the job could not be queued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// pendingDeduper implements Deduper over a bounded LRU set.
type pendingDeduper struct {
	maxSize int
	pending *lru.Cache[string, struct{}]
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &pendingDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	// Only fails for a non-positive size, which WithMaxSize rules out.
	cache, err := lru.New[string, struct{}](d.maxSize)
	if err != nil {
		panic(err)
	}
	d.pending = cache
	return d
}

func (d *pendingDeduper) SeenAndRecord(_ context.Context, id string) bool {
	ok, _ := d.pending.ContainsOrAdd(id, struct{}{})
	return ok
}

func (d *pendingDeduper) Unrecord(_ context.Context, id string) {
	d.pending.Remove(id)
}

func (d *pendingDeduper) Size() int64 {
	return int64(d.pending.Len())
}
