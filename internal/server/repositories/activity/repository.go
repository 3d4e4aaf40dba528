// Package activity stores the append-only audit log.
package activity

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.ActivityEntry) error
	// List returns entries newest first. A non-nil since drops older entries.
	List(ctx context.Context, ownerID string, since *time.Time, limit, offset int) ([]*models.ActivityEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
