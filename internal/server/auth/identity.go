package auth

import (
	"context"
	"time"
)

// Identity is what a validated token grants for one request.
type Identity struct {
	TokenID string
	OwnerID string
	Name    string
	Prefix  string
	Scopes  ScopeSet
	// DataWindow limits reads to records newer than now-DataWindow.
	// Zero means unlimited.
	DataWindow time.Duration
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity of the current request.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// HasScope is the single scope check used by every handler.
func HasScope(id *Identity, scope Scope) bool {
	return id != nil && id.Scopes.Has(scope)
}

// DataWindowCutoff returns the oldest timestamp a read may return, or false
// when the token has no window. Writes are never windowed.
func DataWindowCutoff(id *Identity, now time.Time) (time.Time, bool) {
	if id == nil || id.DataWindow <= 0 {
		return time.Time{}, false
	}
	return now.Add(-id.DataWindow), true
}
