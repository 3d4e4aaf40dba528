package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/google/uuid"
)

// CreateTokenRequest describes a token an admin wants to issue.
type CreateTokenRequest struct {
	Name       string
	Scopes     []string
	ExpiresAt  *time.Time
	DataWindow time.Duration
}

// CreatedToken is a stored token plus its raw secret, shown exactly once.
type CreatedToken struct {
	Token *models.AccessToken
	Raw   string
}

// TokenService administers access tokens.
type TokenService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	activity    *ActivityService
	log         logging.Logger
	clock       timex.Clock
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, activity *ActivityService, log logging.Logger, clock timex.Clock) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		activity:    activity,
		log:         log.With("module", "tokens"),
		clock:       clock,
	}
}

// Create issues a new token for ownerID.
func (s *TokenService) Create(ctx context.Context, ownerID string, req CreateTokenRequest) (*CreatedToken, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &validate.FieldError{Field: "name", Reason: "required"}
	}
	if len(req.Scopes) == 0 {
		return nil, &validate.FieldError{Field: "scopes", Reason: "at least one scope is required"}
	}
	scopes, err := auth.ParseScopeSet(req.Scopes)
	if err != nil {
		return nil, &validate.FieldError{Field: "scopes", Reason: err.Error()}
	}
	if req.DataWindow < 0 {
		return nil, &validate.FieldError{Field: "dataWindow", Reason: "must not be negative"}
	}
	// Windows are stored in whole seconds and zero means unrestricted.
	if req.DataWindow > 0 && req.DataWindow < time.Second {
		return nil, &validate.FieldError{Field: "dataWindow", Reason: "must be zero or at least one second"}
	}
	now := s.clock.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, &validate.FieldError{Field: "expiresAt", Reason: "must be in the future"}
	}

	raw, prefix, hash, err := auth.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	tok := &models.AccessToken{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		TokenHash:  hash,
		Prefix:     prefix,
		Scopes:     scopes.Names(),
		ExpiresAt:  req.ExpiresAt,
		DataWindow: req.DataWindow.Truncate(time.Second),
		CreatedAt:  now,
	}
	if err := s.repomanager.Tokens(s.db).Create(ctx, tok); err != nil {
		return nil, fmt.Errorf("error creating token: %w", err)
	}

	s.log.Info(ctx, "token created", "prefix", prefix, "name", name, "scopes", tok.Scopes)
	s.activity.Record(ctx, models.ActivityEntry{
		OwnerID: ownerID, TokenID: tok.ID, TokenPrefix: prefix,
		Action: models.ActionTokenCreate, Resource: "tokens", Count: 1, Detail: name,
	})
	return &CreatedToken{Token: tok, Raw: raw}, nil
}

func (s *TokenService) List(ctx context.Context, ownerID string) ([]*models.AccessToken, error) {
	return s.repomanager.Tokens(s.db).List(ctx, ownerID)
}

// Revoke soft-deletes token id. Unknown ids are common.ErrorNotFound.
func (s *TokenService) Revoke(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &validate.FieldError{Field: "id", Reason: "must be a UUID"}
	}
	if err := s.repomanager.Tokens(s.db).Revoke(ctx, ownerID, id, s.clock.Now()); err != nil {
		return err
	}
	s.log.Info(ctx, "token revoked", "id", id)
	s.activity.Record(ctx, models.ActivityEntry{
		OwnerID: ownerID, TokenID: id,
		Action: models.ActionTokenRevoke, Resource: "tokens", Count: 1,
	})
	return nil
}
