package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/geocluster/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run generates datasets, submits them concurrently and verifies every result.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting geocluster load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("datasets", cfg.Datasets),
		logger.Int("blobs", cfg.Blobs),
		logger.Int("workers", cfg.Workers),
		logger.Bool("async", cfg.Async),
		logger.Duration("timeout", cfg.Timeout))

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	datasets, err := Generate(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("dataset generation failed: %w", err)
	}
	if cfg.OutputFile != "" {
		if err := saveDatasets(ctx, cfg.OutputFile, datasets); err != nil {
			log.Warn(ctx, "failed to save datasets", logger.Error(err))
		}
	}

	var mu sync.Mutex
	var failures []error
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range datasets {
		ds := datasets[i]
		g.Go(func() error {
			out, err := submit(gctx, client, cfg, ds)
			if err == nil {
				var rep Report
				rep, err = Verify(ds, out, cfg.Blobs, cfg.MinPurity)
				if err == nil && cfg.Verbose {
					log.Debug(gctx, "dataset verified",
						logger.String("dataset", ds.ID),
						logger.Int("k", rep.K),
						logger.Float64("purity", rep.Purity),
						logger.Duration("elapsed", out.Duration))
				}
			}

			mu.Lock()
			defer mu.Unlock()
			stats.DatasetsSubmitted++
			stats.RecordsSubmitted += len(ds.Records)
			if err != nil {
				stats.DatasetsFailed++
				failures = append(failures, err)
				log.Error(gctx, "dataset failed", logger.String("dataset", ds.ID), logger.Error(err))
				return nil
			}
			stats.DatasetsVerified++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(failures) > 0 {
		return stats, fmt.Errorf("%d of %d datasets failed, first: %w", len(failures), len(datasets), failures[0])
	}
	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

func submit(ctx context.Context, client *HTTPClient, cfg *Config, ds Dataset) (Outcome, error) {
	start := time.Now()
	if !cfg.Async {
		resp, err := client.Cluster(ctx, ds.Records)
		if err != nil {
			return Outcome{}, err
		}
		out, err := outcomeOf(ds, resp)
		out.Duration = time.Since(start)
		return out, err
	}

	sub, err := client.Submit(ctx, ds.ID, ds.Records)
	if err != nil {
		return Outcome{}, err
	}
	job, err := client.Wait(ctx, sub.JobID, cfg.PollInterval)
	if err != nil {
		return Outcome{}, err
	}
	if job.Result == nil {
		return Outcome{}, fmt.Errorf("%w: job %s: %s", ErrJobFailed, job.ID, job.Error)
	}
	out, err := outcomeOf(ds, job.Result)
	out.Duration = time.Since(start)
	return out, err
}

func (c *Config) withDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MinPurity <= 0 {
		c.MinPurity = DefaultMinPurity
	}
	if c.Spread <= 0 {
		c.Spread = DefaultSpread
	}
}

// saveDatasets writes the generated datasets as a JSON array.
func saveDatasets(ctx context.Context, filename string, datasets []Dataset) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(datasets); err != nil {
		return fmt.Errorf("failed to write datasets: %w", err)
	}
	logger.Get().Info(ctx, "datasets saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, recordsPerSecond float64
	if stats.DatasetsSubmitted > 0 {
		successRate = float64(stats.DatasetsVerified) / float64(stats.DatasetsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		recordsPerSecond = float64(stats.RecordsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("datasetsGenerated", stats.DatasetsGenerated),
		logger.Int("datasetsSubmitted", stats.DatasetsSubmitted),
		logger.Int("datasetsVerified", stats.DatasetsVerified),
		logger.Int("datasetsFailed", stats.DatasetsFailed),
		logger.Int("recordsSubmitted", stats.RecordsSubmitted),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("recordsPerSecond", recordsPerSecond))
}
