package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/blobstore"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// ScreenshotView is a listed screenshot with a short-lived download URL.
type ScreenshotView struct {
	ScreenshotID string    `json:"screenshotId"`
	DeviceID     string    `json:"deviceId,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	Width        *int      `json:"width"`
	Height       *int      `json:"height"`
	CapturedAt   time.Time `json:"capturedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	URL          string    `json:"url"`
}

// ScreenshotService stores encrypted screenshots: the blob in object
// storage, metadata in the database.
type ScreenshotService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	activity    *ActivityService
	log         logging.Logger
	clock       timex.Clock
	newKey      func(ownerID string, capturedAt time.Time) string
}

func NewScreenshotService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store,
	activity *ActivityService, log logging.Logger, clock timex.Clock) *ScreenshotService {
	return &ScreenshotService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		activity:    activity,
		log:         log.With("module", "screenshots"),
		clock:       clock,
		newKey:      blobstore.ScreenshotKey,
	}
}

// Upload stores up. It reports false when the owner already has the
// screenshot id; the just-uploaded blob is then removed again.
func (s *ScreenshotService) Upload(ctx context.Context, id *auth.Identity, up *validate.ScreenshotUpload, deviceID string) (bool, error) {
	if up.DeviceID != "" {
		deviceID = up.DeviceID
	}
	key := s.newKey(id.OwnerID, up.CapturedAt)
	if err := s.blobs.Put(ctx, key, up.Blob); err != nil {
		return false, err
	}

	shot := &models.Screenshot{
		ID:           uuid.NewString(),
		OwnerID:      id.OwnerID,
		ScreenshotID: up.ScreenshotID,
		DeviceID:     deviceID,
		StorageKey:   key,
		SizeBytes:    int64(len(up.Blob)),
		Width:        up.Width,
		Height:       up.Height,
		CapturedAt:   up.CapturedAt,
		CreatedAt:    s.clock.Now(),
	}
	inserted, err := s.repomanager.Screenshots(s.db).Create(ctx, shot)
	if err != nil || !inserted {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Warn(ctx, "orphan blob left behind", "key", key, "error", derr)
		}
	}
	if err != nil {
		return false, fmt.Errorf("error storing screenshot: %w", err)
	}
	if !inserted {
		return false, nil
	}

	s.log.Info(ctx, "screenshot stored",
		"prefix", id.Prefix, "screenshot", up.ScreenshotID, "size", humanize.Bytes(uint64(len(up.Blob))))
	s.activity.Record(ctx, Entry(id, models.ActionWrite, "screenshots", 1))
	return true, nil
}

// List returns one page of screenshots newest first, limited by the data
// window, each with a presigned GET URL.
func (s *ScreenshotService) List(ctx context.Context, id *auth.Identity, page Page) ([]ScreenshotView, error) {
	since := windowSince(id, s.clock.Now())
	shots, err := s.repomanager.Screenshots(s.db).List(ctx, id.OwnerID, since, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	out := make([]ScreenshotView, 0, len(shots))
	for _, sh := range shots {
		url, err := s.blobs.PresignGet(ctx, sh.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("error presigning %s: %w", sh.StorageKey, err)
		}
		out = append(out, ScreenshotView{
			ScreenshotID: sh.ScreenshotID,
			DeviceID:     sh.DeviceID,
			SizeBytes:    sh.SizeBytes,
			Width:        sh.Width,
			Height:       sh.Height,
			CapturedAt:   sh.CapturedAt,
			CreatedAt:    sh.CreatedAt,
			URL:          url,
		})
	}
	s.activity.Record(ctx, Entry(id, models.ActionRead, "screenshots", len(out)))
	return out, nil
}
