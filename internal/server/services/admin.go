package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/config"
	"golang.org/x/crypto/bcrypt"
)

// AdminService opens admin sessions. The admin password exists only as a
// bcrypt hash in the config; without one, admin login is disabled.
type AdminService struct {
	ownerID         string
	passwordHash    []byte
	secretKey       []byte
	sessionDuration time.Duration
	log             logging.Logger
}

func NewAdminService(cfg *config.Config, log logging.Logger) *AdminService {
	return &AdminService{
		ownerID:         cfg.OwnerID,
		passwordHash:    []byte(cfg.AdminPasswordHash),
		secretKey:       []byte(cfg.AdminSecretKey),
		sessionDuration: cfg.AdminSessionDuration,
		log:             log.With("module", "admin"),
	}
}

// Login checks password and returns a signed session token.
func (s *AdminService) Login(ctx context.Context, password string) (string, error) {
	if len(s.passwordHash) == 0 {
		return "", common.ErrorUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.log.Error(ctx, "admin password hash is unusable", "error", err)
		}
		return "", common.ErrorUnauthorized
	}
	return auth.GenerateAdminToken(s.ownerID, s.secretKey, s.sessionDuration)
}

// Owner verifies a session token and returns the owner it acts for.
func (s *AdminService) Owner(token string) (string, error) {
	return auth.OwnerFromAdminToken(token, s.secretKey)
}
