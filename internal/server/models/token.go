package models

import "time"

// AccessToken is a stored bearer token. Only the SHA-256 of the raw secret
// is kept.
type AccessToken struct {
	ID         string
	OwnerID    string
	Name       string
	TokenHash  string
	Prefix     string
	Scopes     []string
	ExpiresAt  *time.Time
	DataWindow time.Duration
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Revoked reports whether the token was soft-deleted.
func (t *AccessToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token expired at or before now.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
