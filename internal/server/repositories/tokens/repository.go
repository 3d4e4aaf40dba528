// Package tokens declares the storage contract for access tokens.
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// Repository stores access tokens. Raw secrets never reach it; tokens are
// looked up by hash.
type Repository interface {
	// Create stores a new token.
	Create(ctx context.Context, t *models.AccessToken) error

	// GetByHash returns the token with the given secret hash, revoked or not.
	// Implementations return common.ErrorNotFound when absent.
	GetByHash(ctx context.Context, hash string) (*models.AccessToken, error)

	// List returns every token of ownerID, newest first.
	List(ctx context.Context, ownerID string) ([]*models.AccessToken, error)

	// Revoke soft-deletes a token. Revoking an already revoked token keeps
	// the original timestamp. Returns common.ErrorNotFound when absent.
	Revoke(ctx context.Context, ownerID, id string, at time.Time) error

	// TouchLastUsed records that the token was just used.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
