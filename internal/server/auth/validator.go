package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
)

// TokenStore is the storage the validator needs.
type TokenStore interface {
	GetByHash(ctx context.Context, hash string) (*models.AccessToken, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

const touchTimeout = 5 * time.Second

// Validator resolves raw bearer tokens to identities.
type Validator struct {
	store TokenStore
	log   logging.Logger
	clock timex.Clock
	// async runs the lastUsedAt bump off the request path.
	async func(func())
}

func NewValidator(store TokenStore, log logging.Logger, clock timex.Clock) *Validator {
	return &Validator{
		store: store,
		log:   log.With("module", "auth"),
		clock: clock,
		async: func(f func()) { go f() },
	}
}

// Validate checks shape, looks the token up by hash and rejects revoked or
// expired tokens. Every rejection is common.ErrInvalidToken wrapped with
// the reason, so callers can answer 401 without leaking it.
func (v *Validator) Validate(ctx context.Context, raw string) (*Identity, error) {
	if !WellFormed(raw) {
		return nil, common.ErrInvalidToken
	}

	tok, err := v.store.GetByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	now := v.clock.Now()
	if tok.Revoked() {
		return nil, errors.Join(common.ErrInvalidToken, common.ErrTokenRevoked)
	}
	if tok.Expired(now) {
		return nil, errors.Join(common.ErrInvalidToken, common.ErrTokenExpired)
	}

	scopes, err := ParseScopeSet(tok.Scopes)
	if err != nil {
		v.log.Warn(ctx, "token has unknown scope", "prefix", tok.Prefix, "error", err)
		return nil, common.ErrInvalidToken
	}

	v.touch(ctx, tok, now)

	return &Identity{
		TokenID:    tok.ID,
		OwnerID:    tok.OwnerID,
		Name:       tok.Name,
		Prefix:     tok.Prefix,
		Scopes:     scopes,
		DataWindow: tok.DataWindow,
	}, nil
}

func (v *Validator) touch(ctx context.Context, tok *models.AccessToken, now time.Time) {
	bg := context.WithoutCancel(ctx)
	id, prefix := tok.ID, tok.Prefix
	v.async(func() {
		c, cancel := context.WithTimeout(bg, touchTimeout)
		defer cancel()
		if err := v.store.TouchLastUsed(c, id, now); err != nil {
			v.log.Warn(c, "lastUsedAt update failed", "prefix", prefix, "error", err)
		}
	})
}
