// Package dedupe suppresses duplicate inventory rows inside an evaluation
// batch. Ingestion can deliver the same (product, store, batch) row more
// than once; only the first occurrence is evaluated.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen row keys so each row is evaluated at most once.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it
	// if not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryDeduper implements Deduper with a bounded map. Once maxSize keys
// are recorded, further unseen keys pass through unrecorded; a bound larger
// than any realistic batch makes that acceptable for batch-scoped use.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a batch-scoped deduper with configuration
// options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		return false
	}
	d.seen[key] = struct{}{}
	d.size.Store(int64(len(d.seen)))
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
