package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/pkg/metrics"
)

const defaultCapacity = 10000

// MemoryStore is a bounded in-memory Store. Records are kept in submission
// order; when full, the oldest finished job is evicted to make room.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	index    map[string]*list.Element
	order    *list.List // of *model.JobRecord, oldest at front
	onEvict  func(model.JobRecord)
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a job store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.index = make(map[string]*list.Element)
	s.order = list.New()
	return s
}

func (s *MemoryStore) Put(ctx context.Context, rec model.JobRecord) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	if s.order.Len() >= s.capacity && !s.evictFinished() {
		return ErrFull
	}
	if rec.Status == "" {
		rec.Status = model.JobPending
	}
	s.index[rec.ID] = s.order.PushBack(&rec)
	metrics.UpdateJobsStored(s.order.Len())
	return nil
}

// evictFinished drops the oldest terminal job. Must be called with s.mu held.
func (s *MemoryStore) evictFinished() bool {
	for el := s.order.Front(); el != nil; el = el.Next() {
		rec := el.Value.(*model.JobRecord)
		if rec.Status.Terminal() {
			s.order.Remove(el)
			delete(s.index, rec.ID)
			metrics.RecordJobEvicted()
			metrics.UpdateJobsStored(s.order.Len())
			if s.onEvict != nil {
				s.onEvict(*rec)
			}
			return true
		}
	}
	return false
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.index[id]
	if !ok {
		return model.JobRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *el.Value.(*model.JobRecord), nil
}

func (s *MemoryStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.transition(id, func(rec *model.JobRecord) error {
		if rec.Status != model.JobPending {
			return fmt.Errorf("%w: %s is %s", ErrInvalidStatus, id, rec.Status)
		}
		rec.Status = model.JobRunning
		rec.StartedAt = &at
		return nil
	})
}

func (s *MemoryStore) Complete(ctx context.Context, id string, res *model.ClusterResponse, at time.Time) error {
	return s.transition(id, func(rec *model.JobRecord) error {
		if rec.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidStatus, id, rec.Status)
		}
		rec.Status = model.JobDone
		rec.Result = res
		rec.FinishedAt = &at
		return nil
	})
}

func (s *MemoryStore) Fail(ctx context.Context, id string, reason string, at time.Time) error {
	return s.transition(id, func(rec *model.JobRecord) error {
		if rec.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidStatus, id, rec.Status)
		}
		rec.Status = model.JobFailed
		rec.Error = reason
		rec.FinishedAt = &at
		return nil
	})
}

func (s *MemoryStore) transition(id string, apply func(*model.JobRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return apply(el.Value.(*model.JobRecord))
}

func (s *MemoryStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[id]; ok {
		s.order.Remove(el)
		delete(s.index, id)
		metrics.UpdateJobsStored(s.order.Len())
	}
}

func (s *MemoryStore) List(ctx context.Context, status model.JobStatus, limit int) ([]model.JobRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.JobRecord, 0, min(limit, s.order.Len()))
	for el := s.order.Back(); el != nil && len(out) < limit; el = el.Prev() {
		rec := el.Value.(*model.JobRecord)
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
