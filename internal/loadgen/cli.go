package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/geocluster/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends logs to stdout and to logFile. An empty logFile gets a
// timestamped name.
func SetupLogging(logFile string, verbose bool) (string, error) {
	if logFile == "" {
		logFile = "load_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithOptions(io.MultiWriter(os.Stdout, file), logger.FormatText); err != nil {
		return "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return logFile, nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `geocluster load tool
====================

Generates synthetic Gaussian blob datasets, posts them to a running geocluster
server and verifies that every blob comes back as its own cluster.

Usage:
  go run ./cmd/cluster-load [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -datasets int      Number of datasets to submit (default 20)
  -blobs int         Blobs per dataset (default 5)
  -points int        Records per blob (default 200)
  -spread float      Blob standard deviation in degrees (default 0.05)
  -seed int          Generator seed (default 42)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -async             Submit through /jobs and poll for results
  -purity float      Minimum purity per dataset (default 0.95)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write generated datasets to this JSON file
  -log string        Log file (default: load_log_TIMESTAMP.log)
  -verbose           Enable debug logging
  -help              Show this help message

Examples:
  go run ./cmd/cluster-load -datasets 100 -blobs 8 -workers 16
  go run ./cmd/cluster-load -async -url http://localhost:8080
`)
}
