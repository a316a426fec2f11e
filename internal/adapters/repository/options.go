package repository

import "github.com/okian/geocluster/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithCapacity sets how many jobs are kept. Finished jobs are evicted
// oldest-first once the store is full.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithEvictHook registers fn to run for every job evicted to make room.
// fn runs with the store locked and must not call back into the store.
func WithEvictHook(fn func(model.JobRecord)) Option {
	return func(s *MemoryStore) {
		s.onEvict = fn
	}
}
