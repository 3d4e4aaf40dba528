package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
)

// ActivityService writes and reads the audit log. Writes are best-effort:
// a failure is logged and never reaches the caller. A nil *ActivityService
// records nothing.
type ActivityService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	clock       timex.Clock
}

func NewActivityService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger, clock timex.Clock) *ActivityService {
	return &ActivityService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "activity"),
		clock:       clock,
	}
}

// Entry builds an activity entry attributed to id.
func Entry(id *auth.Identity, action models.Action, resource string, count int) models.ActivityEntry {
	e := models.ActivityEntry{Action: action, Resource: resource, Count: count}
	if id != nil {
		e.OwnerID = id.OwnerID
		e.TokenID = id.TokenID
		e.TokenPrefix = id.Prefix
	}
	return e
}

// Record appends e, stamping it with the current time.
func (s *ActivityService) Record(ctx context.Context, e models.ActivityEntry) {
	if s == nil {
		return
	}
	e.CreatedAt = s.clock.Now()
	if err := s.repomanager.Activity(s.db).Append(ctx, &e); err != nil {
		s.log.Warn(ctx, "activity append failed",
			"action", e.Action, "resource", e.Resource, "prefix", e.TokenPrefix, "error", err)
	}
}

// List returns the owner's activity newest first, limited by the token's
// data window.
func (s *ActivityService) List(ctx context.Context, id *auth.Identity, page Page) ([]*models.ActivityEntry, error) {
	since := windowSince(id, s.clock.Now())
	entries, err := s.repomanager.Activity(s.db).List(ctx, id.OwnerID, since, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	s.Record(ctx, Entry(id, models.ActionRead, "activity", len(entries)))
	return entries, nil
}
