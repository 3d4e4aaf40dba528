package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/blobstore"
	"github.com/dmitrijs2005/ctxvault/internal/server/config"
	"github.com/dmitrijs2005/ctxvault/internal/server/metrics"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/dustin/go-humanize"
)

// SweepResult is the outcome of one retention target. Disabled targets
// carry only Disabled.
type SweepResult struct {
	Disabled       bool      `json:"-"`
	Failed         bool      `json:"-"`
	DeletedCount   int64     `json:"deletedCount"`
	RetentionHours int       `json:"retentionHours"`
	CutoffTime     time.Time `json:"cutoffTime"`
}

// MarshalJSON renders a disabled target as the string "disabled" and a
// failed one as {"error":"sweep failed"}. Failure details stay in the logs.
func (r SweepResult) MarshalJSON() ([]byte, error) {
	if r.Disabled {
		return []byte(`"disabled"`), nil
	}
	if r.Failed {
		return []byte(`{"error":"sweep failed"}`), nil
	}
	type plain SweepResult
	return json.Marshal(plain(r))
}

// RetentionService deletes rows, and screenshot blobs, older than each
// target's retention. Every delete is a single statement, so sweeps are
// idempotent and may overlap.
type RetentionService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	hours       map[string]int
	metrics     *metrics.Metrics
	activity    *ActivityService
	ownerID     string
	log         logging.Logger
	clock       timex.Clock
}

func NewRetentionService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, cfg *config.Config,
	activity *ActivityService, mt *metrics.Metrics, log logging.Logger, clock timex.Clock) *RetentionService {
	hours := make(map[string]int, len(cfg.RetentionHours))
	for k, v := range cfg.RetentionHours {
		hours[k] = v
	}
	return &RetentionService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		hours:       hours,
		metrics:     mt,
		activity:    activity,
		ownerID:     cfg.OwnerID,
		log:         log.With("module", "retention"),
		clock:       clock,
	}
}

// Sweep deletes target's rows older than hours. hours <= 0 disables the
// target and returns common.ErrRetentionDisabled.
func (s *RetentionService) Sweep(ctx context.Context, target string, hours int) (SweepResult, error) {
	if hours <= 0 {
		return SweepResult{Disabled: true}, common.ErrRetentionDisabled
	}
	cutoff := s.clock.Now().Add(-time.Duration(hours) * time.Hour)
	res := SweepResult{RetentionHours: hours, CutoffTime: cutoff}

	var err error
	switch target {
	case config.RetentionScreenshots:
		res.DeletedCount, err = s.sweepScreenshots(ctx, cutoff)
	case config.RetentionActivity:
		res.DeletedCount, err = s.repomanager.Activity(s.db).DeleteOlderThan(ctx, cutoff)
	case config.RetentionJobs:
		res.DeletedCount, err = s.repomanager.Jobs(s.db).DeleteFinishedBefore(ctx, cutoff)
	default:
		kind, ok := schema.Lookup(target)
		if !ok {
			return SweepResult{}, fmt.Errorf("unknown retention target %q", target)
		}
		res.DeletedCount, err = s.repomanager.Records(s.db).DeleteOlderThan(ctx, kind, cutoff)
	}
	if err != nil {
		return SweepResult{}, fmt.Errorf("sweep %s: %w", target, err)
	}

	s.metrics.RetentionDeleted(target, res.DeletedCount)
	return res, nil
}

// sweepScreenshots deletes metadata first, then the blobs of the deleted
// rows. A blob that fails to delete is logged and left behind.
func (s *RetentionService) sweepScreenshots(ctx context.Context, cutoff time.Time) (int64, error) {
	keys, err := s.repomanager.Screenshots(s.db).DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn(ctx, "blob delete failed", "key", key, "error", err)
		}
	}
	return int64(len(keys)), nil
}

// SweepAll sweeps every configured target. A failing target is logged and
// the others still run; the joined errors are returned with the results.
func (s *RetentionService) SweepAll(ctx context.Context) (map[string]SweepResult, error) {
	out := make(map[string]SweepResult)
	var errs []error
	var total int64

	for _, target := range config.RetentionTargets() {
		res, err := s.Sweep(ctx, target, s.hours[target])
		if errors.Is(err, common.ErrRetentionDisabled) {
			out[target] = res
			continue
		}
		if err != nil {
			s.log.Error(ctx, "retention sweep failed", "target", target, "error", err)
			errs = append(errs, err)
			out[target] = SweepResult{Failed: true, RetentionHours: s.hours[target]}
			continue
		}
		out[target] = res
		total += res.DeletedCount
	}

	s.log.Info(ctx, "retention sweep finished", "deleted", humanize.Comma(total))
	s.activity.Record(ctx, models.ActivityEntry{
		OwnerID: s.ownerID, Action: models.ActionSweep, Resource: "retention", Count: int(total),
	})
	return out, errors.Join(errs...)
}
