package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
)

// ReadService serves record listings. Every read is limited by the
// caller's data window.
type ReadService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	activity    *ActivityService
	log         logging.Logger
	clock       timex.Clock
}

func NewReadService(db *sql.DB, m repomanager.RepositoryManager, activity *ActivityService, log logging.Logger, clock timex.Clock) *ReadService {
	return &ReadService{
		db:          db,
		repomanager: m,
		activity:    activity,
		log:         log.With("module", "read"),
		clock:       clock,
	}
}

// List returns one page of kind's records newest first, children attached.
// filters maps filter field names to exact values.
func (s *ReadService) List(ctx context.Context, id *auth.Identity, kind *schema.Kind, filters map[string]string, page Page) ([]models.Record, error) {
	q := records.Query{
		OwnerID: id.OwnerID,
		Filters: filters,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	q.Since = windowSince(id, s.clock.Now())

	repo := s.repomanager.Records(s.db)
	recs, err := repo.List(ctx, kind, q)
	if err != nil {
		return nil, err
	}

	if kind.Child != nil && len(recs) > 0 {
		keys := make([]string, len(recs))
		for i, r := range recs {
			keys[i] = r.Key
		}
		children, err := repo.ListChildren(ctx, kind, id.OwnerID, keys)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			recs[i].Children = children[recs[i].Key]
		}
	}

	s.activity.Record(ctx, Entry(id, models.ActionRead, kind.Name, len(recs)))
	return recs, nil
}

// windowSince is the data-window cutoff of id as an optional bound.
func windowSince(id *auth.Identity, now time.Time) *time.Time {
	if cutoff, ok := auth.DataWindowCutoff(id, now); ok {
		return &cutoff
	}
	return nil
}
