// Package dedupe tracks client request ids so a resubmitted clustering request
// maps back to the job it already created.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records request keys and the job id each one produced.
type Deduper interface {
	// Claim atomically binds key to jobID unless key is already bound.
	// It returns the bound job id and whether key was seen before.
	Claim(ctx context.Context, key, jobID string) (existing string, seen bool)

	// Release unbinds key so it can be claimed again. Used when a job that
	// claimed the key could not be enqueued.
	Release(ctx context.Context, key string)

	// ReleaseJob unbinds key only while it is still bound to jobID.
	ReleaseJob(ctx context.Context, key, jobID string)

	Size() int64
}

type entry struct {
	key   string
	jobID string
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Claim(ctx context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		return el.Value.(*entry).jobID, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.index[key] = d.order.PushBack(&entry{key: key, jobID: jobID})
	return jobID, false
}

func (d *inMemoryDeduper) Release(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *inMemoryDeduper) ReleaseJob(ctx context.Context, key, jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok && el.Value.(*entry).jobID == jobID {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.index, front.Value.(*entry).key)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
