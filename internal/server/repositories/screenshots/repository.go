// Package screenshots stores screenshot metadata. Blobs live in object storage.
package screenshots

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

type Repository interface {
	// Create inserts s unless the owner already has its screenshot id.
	// It reports whether a row was inserted.
	Create(ctx context.Context, s *models.Screenshot) (bool, error)
	// List returns screenshots newest first. A non-nil since drops older ones.
	List(ctx context.Context, ownerID string, since *time.Time, limit, offset int) ([]*models.Screenshot, error)
	// DeleteOlderThan removes rows captured before cutoff and returns the
	// storage keys of the removed rows.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}
