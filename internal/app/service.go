// Package service provides the clustering service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/okian/geocluster/internal/adapters/mq/queue"
	"github.com/okian/geocluster/internal/adapters/mq/worker"
	"github.com/okian/geocluster/internal/adapters/repository"
	"github.com/okian/geocluster/internal/domain/clustering"
	"github.com/okian/geocluster/internal/domain/dedupe"
	"github.com/okian/geocluster/internal/domain/mixture"
	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/internal/domain/record"
	"github.com/okian/geocluster/internal/domain/render"
	"github.com/okian/geocluster/pkg/logger"
	"github.com/okian/geocluster/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service runs clustering synchronously and through a job queue.
type Service struct {
	mu sync.RWMutex

	engine  *clustering.Engine
	builder *render.Builder
	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	workerCount    int
	queueSize      int
	dedupeSize     int
	resultCapacity int
	maxRecords     int
	jobTimeout     time.Duration
	fitterOpts     []mixture.Option
	renderOpts     []render.Option

	started bool
	cancel  context.CancelFunc

	runs       atomic.Int64
	runsFailed atomic.Int64

	logger logger.Logger
}

// New constructs a Service. Synchronous clustering works immediately; jobs
// require Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      1024,
		dedupeSize:     50_000,
		resultCapacity: 10_000,
		maxRecords:     200_000,
		jobTimeout:     2 * time.Minute,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	fitterOpts := append([]mixture.Option{mixture.WithLogger(s.logger.Named("mixture"))}, s.fitterOpts...)
	s.engine = clustering.NewEngine(
		clustering.WithFitter(mixture.NewFitter(fitterOpts...)),
		clustering.WithLogger(s.logger.Named("engine")),
	)
	s.builder = render.NewBuilder(s.renderOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.store = repository.NewMemoryStore(
		repository.WithCapacity(s.resultCapacity),
		repository.WithEvictHook(s.forgetEvicted),
	)
	return s
}

// Start creates the job queue and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting clustering service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.queue, s, s.store,
		worker.WithWorkerCount(s.workerCount),
		worker.WithJobTimeout(s.jobTimeout),
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "clustering service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("resultCapacity", s.resultCapacity),
	)
	return nil
}

// Stop closes the queue, lets workers finish queued jobs, then returns.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping clustering service...")

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "workers did not drain", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "clustering service stopped")
}

// Cluster runs one request synchronously.
func (s *Service) Cluster(ctx context.Context, req model.ClusterRequest) (*model.ClusterResponse, error) {
	res, payload, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return model.NewClusterResponse(res, payload), nil
}

// ClusterGeoJSON runs one request and renders it as a GeoJSON feature collection.
func (s *Service) ClusterGeoJSON(ctx context.Context, req model.ClusterRequest) (*geojson.FeatureCollection, error) {
	res, payload, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.builder.FeatureCollection(res.Records, res.Points, res.Labels, payload)
}

func (s *Service) run(ctx context.Context, req model.ClusterRequest) (*clustering.Result, render.Payload, error) {
	s.runs.Add(1)
	strategy := string(req.Strategy)
	if strategy == "" {
		strategy = string(clustering.StrategyMixture)
	}
	if len(req.Records) > s.maxRecords {
		s.runsFailed.Add(1)
		metrics.RecordRunFailure(strategy, metrics.OutcomeParamsError)
		return nil, render.Payload{}, fmt.Errorf("%w: %d records, limit %d", model.ErrTooManyRecords, len(req.Records), s.maxRecords)
	}

	res, err := s.engine.Run(ctx, req.Records, req.Params)
	if err != nil {
		s.runsFailed.Add(1)
		metrics.RecordRunFailure(strategy, outcomeOf(err))
		return nil, render.Payload{}, err
	}
	payload, err := s.builder.Build(res.Points, res.Labels)
	if err != nil {
		s.runsFailed.Add(1)
		metrics.RecordRunFailure(strategy, metrics.OutcomeError)
		return nil, render.Payload{}, err
	}

	run := metrics.Run{
		Strategy:   string(res.Strategy),
		K:          res.K,
		Records:    len(res.Records),
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
		Clusters:   len(payload.Clusters),
		Hulls:      payload.HullCount(),
	}
	if m := res.Model; m != nil {
		run.Fitted = true
		run.Iterations = m.Iterations
		run.Converged = m.Converged
		run.Reseeds = m.Reseeds
	}
	metrics.RecordRun(run)
	return res, payload, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, record.ErrSchema), errors.Is(err, record.ErrEmpty):
		return metrics.OutcomeSchemaError
	case errors.Is(err, record.ErrCoordinate):
		return metrics.OutcomeCoordError
	case errors.Is(err, clustering.ErrInvalidParams):
		return metrics.OutcomeParamsError
	default:
		return metrics.OutcomeError
	}
}

// Submit queues a request for asynchronous clustering. A request whose
// RequestID was seen before returns the original job with Duplicate set.
func (s *Service) Submit(ctx context.Context, req model.ClusterRequest) (model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Submission{}, fmt.Errorf("%w: job queue not started", model.ErrUnavailable)
	}
	if len(req.Records) > s.maxRecords {
		return model.Submission{}, fmt.Errorf("%w: %d records, limit %d", model.ErrTooManyRecords, len(req.Records), s.maxRecords)
	}
	if err := req.Params.Validate(); err != nil {
		return model.Submission{}, err
	}

	jobID := uuid.NewString()
	if req.RequestID != "" {
		if existing, seen := s.deduper.Claim(ctx, req.RequestID, jobID); seen {
			metrics.RecordJobDuplicate()
			status := model.JobPending
			if rec, err := s.store.Get(ctx, existing); err == nil {
				status = rec.Status
			}
			return model.Submission{JobID: existing, Status: status, Duplicate: true}, nil
		}
	}

	now := time.Now()
	rec := model.JobRecord{ID: jobID, RequestID: req.RequestID, Status: model.JobPending, SubmittedAt: now}
	if err := s.store.Put(ctx, rec); err != nil {
		s.release(ctx, req.RequestID)
		return model.Submission{}, fmt.Errorf("%w: %w", model.ErrBackpressure, err)
	}
	if err := s.queue.Enqueue(ctx, model.Job{ID: jobID, Request: req, SubmittedAt: now}); err != nil {
		s.store.Delete(ctx, jobID)
		s.release(ctx, req.RequestID)
		return model.Submission{}, fmt.Errorf("%w: %w", model.ErrBackpressure, err)
	}

	metrics.RecordJobSubmitted()
	s.logger.Debug(ctx, "job submitted",
		logger.String("jobID", jobID),
		logger.String("requestID", req.RequestID),
		logger.Int("records", len(req.Records)),
	)
	return model.Submission{JobID: jobID, Status: model.JobPending}, nil
}

// forgetEvicted frees the request id of an evicted job so a resubmission
// creates a new job instead of pointing at one that no longer exists.
func (s *Service) forgetEvicted(rec model.JobRecord) { //nolint:gocritic // hugeParam: hook signature
	if rec.RequestID != "" {
		s.deduper.ReleaseJob(context.Background(), rec.RequestID, rec.ID)
	}
}

func (s *Service) release(ctx context.Context, requestID string) {
	if requestID != "" {
		s.deduper.Release(ctx, requestID)
	}
}

// Job returns the stored state of a job.
func (s *Service) Job(ctx context.Context, id string) (model.JobRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.JobRecord{}, fmt.Errorf("%w: %s", model.ErrJobNotFound, id)
	}
	return rec, err
}

// Jobs lists recent jobs, newest first.
func (s *Service) Jobs(ctx context.Context, status model.JobStatus, limit int) ([]model.JobRecord, error) {
	return s.store.List(ctx, status, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"resultCapacity": s.resultCapacity,
		"maxRecords":     s.maxRecords,
		"runs":           s.runs.Load(),
		"runsFailed":     s.runsFailed.Load(),
		"jobsStored":     s.store.Count(ctx),
		"requestIDs":     s.deduper.Size(),
		"paletteSize":    s.builder.Palette().Size(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["workers"] = s.pool.Stats()
		metrics.UpdateQueueSize(queueLen, s.queue.Capacity())
	}
	return stats
}
