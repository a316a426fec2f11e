// Package repository stores clustering jobs and their results.
package repository

import (
	"context"
	"time"

	"github.com/okian/geocluster/internal/domain/model"
)

// Store provides read/write access to job records.
type Store interface {
	// Put adds a new pending job. Returns ErrExists for a known id.
	Put(ctx context.Context, rec model.JobRecord) error

	// Get returns a copy of the job record, or ErrNotFound.
	Get(ctx context.Context, id string) (model.JobRecord, error)

	MarkRunning(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, res *model.ClusterResponse, at time.Time) error
	Fail(ctx context.Context, id string, reason string, at time.Time) error

	// Delete removes a job; unknown ids are ignored.
	Delete(ctx context.Context, id string)

	// List returns up to limit jobs, newest first, optionally filtered by status.
	List(ctx context.Context, status model.JobStatus, limit int) ([]model.JobRecord, error)

	// Count returns the number of stored jobs.
	Count(ctx context.Context) int
}
