// Package jobs stores the write-job queue.
package jobs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// Repository is the write-job queue storage.
type Repository interface {
	Create(ctx context.Context, job *models.WriteJob) error

	// ClaimNext atomically moves the oldest pending job of ownerID to
	// claimed by deviceID. It returns nil when nothing is pending.
	ClaimNext(ctx context.Context, ownerID, deviceID string, at time.Time) (*models.WriteJob, error)

	// HasPending reports whether ownerID still has pending jobs.
	HasPending(ctx context.Context, ownerID string) (bool, error)

	// Finish moves a job claimed by deviceID to status. It reports false
	// when no such claimed job exists.
	Finish(ctx context.Context, ownerID, id, deviceID string, status models.JobStatus, errMsg *string, at time.Time) (bool, error)

	// Get returns one job or common.ErrorNotFound.
	Get(ctx context.Context, ownerID, id string) (*models.WriteJob, error)

	// List returns jobs newest first, optionally filtered by status. A
	// non-nil since drops jobs created before it.
	List(ctx context.Context, ownerID string, status models.JobStatus, since *time.Time, limit, offset int) ([]*models.WriteJob, error)

	// DeleteFinishedBefore removes completed and failed jobs last touched
	// before cutoff.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
