// Package dedupe tracks seen event ids for at-most-once ingestion.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen event ids.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so a failed event can be retried.
	Unrecord(ctx context.Context, id string)

	// Size reports the number of tracked ids.
	Size() int
}

// inMemoryDeduper keeps a bounded set of ids with FIFO eviction: once the
// cap is reached the oldest recorded id is forgotten. maxSize <= 0 disables
// eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	head    int
	maxSize int
}

// Option applies a configuration option to the deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds how many ids are remembered.
func WithMaxSize(size int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = size
	}
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    map[string]struct{}{},
		maxSize: 100_000,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldestLocked()
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return false
}

func (d *inMemoryDeduper) evictOldestLocked() {
	for d.head < len(d.order) {
		oldest := d.order[d.head]
		d.head++
		// Unrecorded ids leave holes in the order slice; skip them.
		if _, ok := d.seen[oldest]; ok {
			delete(d.seen, oldest)
			break
		}
	}
	if d.head > 0 && d.head == len(d.order) {
		d.order = d.order[:0]
		d.head = 0
	}
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
