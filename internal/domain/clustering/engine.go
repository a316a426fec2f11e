// Package clustering runs the geospatial clustering pipeline: it resolves the
// coordinate columns of a record batch, picks the number of clusters, fits a
// Gaussian mixture and writes a cluster label into every record.
package clustering

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/geocluster/internal/domain/mixture"
	"github.com/okian/geocluster/internal/domain/record"
	"github.com/okian/geocluster/pkg/logger"
)

// Result is the labeled output of one run.
type Result struct {
	Records  []record.Record
	Points   []record.Point
	Labels   []int
	Columns  record.Columns
	Groups   int
	K        int
	Strategy Strategy
	// Model is nil when fitting was skipped (k == 1 or the beat code strategy).
	Model    *mixture.Model
	Duration time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithFitter sets the mixture fitter.
func WithFitter(f *mixture.Fitter) Option {
	return func(e *Engine) {
		if f != nil {
			e.fitter = f
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine is stateless between runs and safe for concurrent use.
type Engine struct {
	fitter *mixture.Fitter
	logger logger.Logger
}

// NewEngine creates an Engine with a default fitter.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		fitter: mixture.NewFitter(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run labels every record. Schema and coordinate errors abort the whole batch;
// the input records are never modified.
func (e *Engine) Run(ctx context.Context, records []record.Record, params Params) (*Result, error) {
	start := time.Now()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	strategy, _ := ParseStrategy(string(params.Strategy))

	cols, err := record.Resolve(records)
	if err != nil {
		return nil, err
	}
	points, err := record.Points(records, cols)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Points:   points,
		Columns:  cols,
		Groups:   GroupCount(records, cols),
		Strategy: strategy,
	}

	switch strategy {
	case StrategyBeatCode:
		res.Labels, res.K = groupLabels(records, cols)
	default:
		res.K = params.K(res.Groups, len(records))
		res.Labels, res.Model, err = e.fit(ctx, points, res.K)
		if err != nil {
			return nil, err
		}
	}

	res.Records = make([]record.Record, len(records))
	for i, r := range records {
		res.Records[i] = r.WithCluster(res.Labels[i])
	}
	res.Duration = time.Since(start)

	e.logger.Debug(ctx, "clustering run complete",
		logger.Int("records", len(records)),
		logger.Int("groups", res.Groups),
		logger.Int("k", res.K),
		logger.String("strategy", string(strategy)),
		logger.Duration("duration", res.Duration),
	)
	return res, nil
}

func (e *Engine) fit(ctx context.Context, points []record.Point, k int) ([]int, *mixture.Model, error) {
	labels := make([]int, len(points))
	if k == 1 {
		return labels, nil, nil
	}
	xs := make([][]float64, len(points))
	for i, p := range points {
		xs[i] = []float64{p.Lat, p.Lng}
	}
	model, err := e.fitter.Fit(ctx, xs, k)
	if err != nil {
		return nil, nil, fmt.Errorf("fit mixture with k=%d: %w", k, err)
	}
	return model.Predict(xs), model, nil
}

// groupLabels assigns each distinct normalized group value the index at which
// it was first seen. Without a group column every label is 0.
func groupLabels(records []record.Record, cols record.Columns) ([]int, int) {
	labels := make([]int, len(records))
	if !cols.HasGroup {
		return labels, 1
	}
	index := make(map[string]int)
	for i, r := range records {
		v := record.GroupValue(r, cols)
		l, ok := index[v]
		if !ok {
			l = len(index)
			index[v] = l
		}
		labels[i] = l
	}
	return labels, max(len(index), 1)
}
