// Package services contains server-side business logic: batch
// reconciliation of synced records, windowed reads, token administration,
// the write-job queue, retention and screenshots. Services depend on the
// repomanager and a dbx.TxRunner so tests can swap in fakes.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/metrics"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// DefaultChunkSize is the number of records per upsert transaction.
const DefaultChunkSize = 50

// SyncResult is what one sync request did.
type SyncResult struct {
	models.ReconcileResult
	Rejected []validate.Rejection
}

// SyncService validates and reconciles record batches.
type SyncService struct {
	tx          dbx.TxRunner
	repomanager repomanager.RepositoryManager
	activity    *ActivityService
	metrics     *metrics.Metrics
	log         logging.Logger
	clock       timex.Clock
	chunkSize   int
	newWriteID  func() string
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager, activity *ActivityService,
	mt *metrics.Metrics, log logging.Logger, clock timex.Clock, chunkSize int) *SyncService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &SyncService{
		tx:          dbx.SQLRunner{DB: db},
		repomanager: m,
		activity:    activity,
		metrics:     mt,
		log:         log.With("module", "sync"),
		clock:       clock,
		chunkSize:   chunkSize,
		newWriteID:  func() string { return uuid.NewString() },
	}
}

// Sync validates req and merges the valid records. deviceID is used when
// the request body names none. On a storage error the counts of the chunks
// committed so far are returned along with the error.
func (s *SyncService) Sync(ctx context.Context, id *auth.Identity, kind *schema.Kind, req *validate.SyncRequest, deviceID string) (*SyncResult, error) {
	batch := validate.Batch(kind, req.Items)
	if req.DeviceID != "" {
		deviceID = req.DeviceID
	}

	res, err := s.Reconcile(ctx, id.OwnerID, kind, batch.Valid, deviceID, req.SyncTime)
	out := &SyncResult{ReconcileResult: res, Rejected: batch.Rejected}

	s.metrics.SyncOutcome(kind.Name, res.Inserted, res.Updated, res.Skipped, len(batch.Rejected))
	if res.Inserted+res.Updated > 0 {
		s.activity.Record(ctx, Entry(id, models.ActionWrite, kind.Name, res.Inserted+res.Updated))
	}

	s.log.Info(ctx, "batch reconciled",
		"kind", kind.Name,
		"prefix", id.Prefix,
		"device", deviceID,
		"received", humanize.Comma(int64(len(req.Items))),
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"rejected", len(batch.Rejected),
	)
	return out, err
}

// Reconcile merges validated records of kind into storage.
//
// Duplicate natural keys keep their last occurrence; earlier ones count as
// skipped. Records whose content timestamp is inside the kind's mutable
// window may update mutable columns of an existing row, older ones are
// only inserted. Each chunk runs in its own transaction with at most one
// statement per partition; children go in with their freshly inserted
// parents.
func (s *SyncService) Reconcile(ctx context.Context, ownerID string, kind *schema.Kind, recs []models.Record,
	deviceID string, syncTime *time.Time) (models.ReconcileResult, error) {
	var total models.ReconcileResult

	recs, dupes := dedupe(recs)
	total.Skipped += dupes
	if len(recs) == 0 {
		return total, nil
	}

	now := s.clock.Now()
	cutoff := now.Add(-kind.MutableWindow)

	for start := 0; start < len(recs); start += s.chunkSize {
		end := min(start+s.chunkSize, len(recs))
		chunk := recs[start:end]

		var res models.ReconcileResult
		err := s.tx.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			res = models.ReconcileResult{}
			repo := s.repomanager.Records(tx)
			mutable, fixed := partition(kind, chunk, cutoff)

			for _, part := range []struct {
				recs   []models.Record
				upsert bool
			}{{fixed, false}, {mutable, true}} {
				if len(part.recs) == 0 {
					continue
				}
				w := records.Write{
					OwnerID:       ownerID,
					DeviceID:      deviceID,
					SyncTime:      syncTime,
					WriteID:       s.newWriteID(),
					Now:           now,
					MutableCutoff: cutoff,
				}
				r, err := s.write(ctx, repo, kind, w, part.recs, part.upsert)
				if err != nil {
					return err
				}
				res.Add(r)
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("reconcile %s chunk at %d: %w", kind.Name, start, err)
		}
		total.Add(res)
	}
	return total, nil
}

func (s *SyncService) write(ctx context.Context, repo records.Repository, kind *schema.Kind, w records.Write,
	recs []models.Record, upsert bool) (models.ReconcileResult, error) {
	var (
		outcomes []records.Outcome
		err      error
	)
	if upsert {
		outcomes, err = repo.Upsert(ctx, kind, w, recs)
	} else {
		outcomes, err = repo.InsertNew(ctx, kind, w, recs)
	}
	if err != nil {
		return models.ReconcileResult{}, err
	}

	var res models.ReconcileResult
	inserted := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		if o.Inserted {
			res.Inserted++
			inserted[o.Key] = true
		} else {
			res.Updated++
		}
	}
	res.Skipped = len(recs) - len(outcomes)

	if kind.Child != nil && len(inserted) > 0 {
		var parents []models.Record
		for _, r := range recs {
			if inserted[r.Key] && len(r.Children) > 0 {
				parents = append(parents, r)
			}
		}
		if _, err := repo.InsertChildren(ctx, kind, w, parents); err != nil {
			return models.ReconcileResult{}, err
		}
	}
	return res, nil
}

// dedupe keeps the last occurrence of every natural key, in the order
// those last occurrences appear, and reports how many were dropped.
func dedupe(recs []models.Record) ([]models.Record, int) {
	last := make(map[string]int, len(recs))
	for i, r := range recs {
		last[r.Key] = i
	}
	if len(last) == len(recs) {
		return recs, 0
	}
	out := make([]models.Record, 0, len(last))
	for i, r := range recs {
		if last[r.Key] == i {
			out = append(out, r)
		}
	}
	return out, len(recs) - len(out)
}

// partition splits recs into those still inside the mutable window and
// those that may only be inserted.
func partition(kind *schema.Kind, recs []models.Record, cutoff time.Time) (mutable, fixed []models.Record) {
	if kind.InsertOnly() {
		return nil, recs
	}
	for _, r := range recs {
		if r.Timestamp.Before(cutoff) {
			fixed = append(fixed, r)
		} else {
			mutable = append(mutable, r)
		}
	}
	return mutable, fixed
}
