package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/geocluster/internal/domain/model"
)

func job(id string) model.Job {
	return model.Job{ID: id, SubmittedAt: time.Now()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, job("job1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "job1" {
		t.Errorf("expected job1, got %v", got.ID)
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"job1", "job2"} {
		if err := q.Enqueue(ctx, job(id)); err != nil {
			t.Fatalf("expected enqueue of %s to succeed, got %v", id, err)
		}
	}
	if err := q.Enqueue(ctx, job("job3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	_ = q.Enqueue(context.Background(), job("fill"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, job("late")); err == nil {
		t.Error("expected enqueue on a full queue with a cancelled context to fail")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.Enqueue(ctx, job(fmt.Sprintf("p%d-%d", p, j))); err != nil {
					t.Errorf("enqueue failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()
	_ = q.Close()

	seen := make(map[string]bool)
	for j := range q.Dequeue(ctx) {
		if seen[j.ID] {
			t.Errorf("job %s delivered twice", j.ID)
		}
		seen[j.ID] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d jobs, got %d", producers*perProducer, len(seen))
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Enqueue(ctx, job("after")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if _, ok := <-q.Dequeue(ctx); ok {
		t.Error("expected dequeue channel to be closed")
	}
}
