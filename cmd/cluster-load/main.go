package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/geocluster/internal/loadgen"
	"github.com/okian/geocluster/pkg/logger"
)

// Default configuration constants.
const (
	defaultDatasets      = 20
	defaultBlobs         = 5
	defaultPointsPerBlob = 200
	defaultSeed          = 42
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		datasets   = flag.Int("datasets", defaultDatasets, "Number of datasets to submit")
		blobs      = flag.Int("blobs", defaultBlobs, "Blobs per dataset")
		points     = flag.Int("points", defaultPointsPerBlob, "Records per blob")
		spread     = flag.Float64("spread", loadgen.DefaultSpread, "Blob standard deviation in degrees")
		seed       = flag.Int64("seed", defaultSeed, "Generator seed")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		async      = flag.Bool("async", false, "Submit through /jobs and poll for results")
		purity     = flag.Float64("purity", loadgen.DefaultMinPurity, "Minimum purity per dataset")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write generated datasets to this JSON file")
		logFile    = flag.String("log", "", "Log file (default: load_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp(os.Stdout)
		return
	}

	if _, err := loadgen.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:       *baseURL,
		Datasets:      *datasets,
		Blobs:         *blobs,
		PointsPerBlob: *points,
		Spread:        *spread,
		Seed:          *seed,
		Workers:       *workers,
		Timeout:       *timeout,
		Async:         *async,
		MinPurity:     *purity,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if _, err := loadgen.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
