// Package worker runs queued clustering jobs and records their outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/pkg/logger"
	"github.com/okian/geocluster/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Clusterer runs one clustering request.
type Clusterer interface {
	Cluster(ctx context.Context, req model.ClusterRequest) (*model.ClusterResponse, error)
}

// Store records job state transitions.
type Store interface {
	MarkRunning(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, res *model.ClusterResponse, at time.Time) error
	Fail(ctx context.Context, id string, reason string, at time.Time) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	queue       Queue
	clusterer   Clusterer
	store       Store
	workerCount int
	jobTimeout  time.Duration
	logger      logger.Logger

	active    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

// NewPool creates a worker pool.
func NewPool(q Queue, c Clusterer, s Store, opts ...Option) *Pool {
	p := &Pool{
		queue:     q,
		clusterer: c,
		store:     s,
		logger:    logger.Nop(),
		shutdown:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workerCount < 1 {
		p.workerCount = runtime.NumCPU()
	}
	metrics.UpdateWorkerCount(p.workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start launches the workers. Later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		jobs := p.queue.Dequeue(ctx)
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.run(ctx, jobs, p.logger.Named("worker-"+strconv.Itoa(i)))
		}
	})
}

func (p *Pool) run(ctx context.Context, jobs <-chan model.Job, log logger.Logger) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := p.process(ctx, j, log); err != nil {
				log.Error(ctx, "job failed", logger.String("jobID", j.ID), logger.Error(err))
			}
		}
	}
}

// process runs one job. The returned error is the clustering failure, already
// written to the store.
func (p *Pool) process(ctx context.Context, j model.Job, log logger.Logger) error { //nolint:gocritic // hugeParam: Job arrives by value from the channel
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(p.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := p.store.MarkRunning(ctx, j.ID, start); err != nil {
		log.Warn(ctx, "job state not updated", logger.String("jobID", j.ID), logger.Error(err))
	}

	runCtx := ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	res, err := p.clusterer.Cluster(runCtx, j.Request)
	finished := time.Now()
	if err != nil {
		p.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "cluster_error")
		metrics.RecordJobCompleted(string(model.JobFailed))
		if serr := p.store.Fail(ctx, j.ID, err.Error(), finished); serr != nil {
			err = errors.Join(err, fmt.Errorf("record failure: %w", serr))
		}
		return fmt.Errorf("cluster job %s: %w", j.ID, err)
	}

	p.processed.Add(1)
	metrics.RecordJobCompleted(string(model.JobDone))
	if err := p.store.Complete(ctx, j.ID, res, finished); err != nil {
		log.Warn(ctx, "job result not stored", logger.String("jobID", j.ID), logger.Error(err))
	}
	log.Debug(ctx, "job done",
		logger.String("jobID", j.ID),
		logger.Int("records", len(j.Request.Records)),
		logger.Duration("elapsed", finished.Sub(start)),
	)
	return nil
}

// Stats reports pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workerCount,
		Active:    p.active.Load(),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown waits for the workers to drain the queue, which the caller closes
// first. When ctx ends, or after 30s, workers are told to stop after their
// current job and the jobs still queued stay pending.
func (p *Pool) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.stopOnce.Do(func() { close(p.shutdown) })
		return nil
	case <-ctx.Done():
		p.stopOnce.Do(func() { close(p.shutdown) })
		p.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
