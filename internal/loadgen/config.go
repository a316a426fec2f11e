// Package loadgen generates synthetic blob datasets, posts them to a running
// geocluster server and checks the returned labels against the known blobs.
package loadgen

import (
	"time"

	"github.com/okian/geocluster/internal/domain/record"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Datasets      int           // Number of datasets to generate
	Blobs         int           // Blobs (beat codes) per dataset
	PointsPerBlob int           // Records per blob
	Spread        float64       // Standard deviation of each blob in degrees
	Seed          int64         // Generator seed
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	Async         bool          // Submit through /jobs instead of /cluster
	PollInterval  time.Duration // Job polling interval in async mode
	MinPurity     float64       // Minimum fraction of records in their blob's majority cluster
	OutputFile    string        // Output file for generated datasets
	LogFile       string        // Log file for run output
	Verbose       bool          // Enable verbose logging
}

// Dataset is one generated batch with its ground truth.
type Dataset struct {
	ID      string          `json:"id"`
	Records []record.Record `json:"records"`
	// Truth holds the blob index of each record.
	Truth []int `json:"truth"`
}

// Outcome is what the server returned for one dataset.
type Outcome struct {
	DatasetID string
	K         int
	Labels    []int
	Duration  time.Duration
}

// Stats holds run statistics.
type Stats struct {
	DatasetsGenerated int
	DatasetsSubmitted int
	DatasetsVerified  int
	DatasetsFailed    int
	RecordsSubmitted  int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
