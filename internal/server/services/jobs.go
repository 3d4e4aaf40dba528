package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/metrics"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/google/uuid"
)

// MaxJobErrorLength bounds the error text a device may report.
const MaxJobErrorLength = 2000

// JobService runs the write-job queue.
type JobService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	activity    *ActivityService
	metrics     *metrics.Metrics
	log         logging.Logger
	clock       timex.Clock
}

func NewJobService(db *sql.DB, m repomanager.RepositoryManager, activity *ActivityService,
	mt *metrics.Metrics, log logging.Logger, clock timex.Clock) *JobService {
	return &JobService{
		db:          db,
		repomanager: m,
		activity:    activity,
		metrics:     mt,
		log:         log.With("module", "jobs"),
		clock:       clock,
	}
}

// Enqueue stores a pending job. payload must be a JSON value; nil means {}.
func (s *JobService) Enqueue(ctx context.Context, id *auth.Identity, jobType string, payload json.RawMessage) (*models.WriteJob, error) {
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return nil, &validate.FieldError{Field: "type", Reason: "required"}
	}
	if len(jobType) > validate.MaxKeyLength {
		return nil, &validate.FieldError{Field: "type", Reason: "too long"}
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return nil, &validate.FieldError{Field: "payload", Reason: "must be valid JSON"}
	}

	job := &models.WriteJob{
		ID:        uuid.NewString(),
		OwnerID:   id.OwnerID,
		TokenID:   id.TokenID,
		Type:      jobType,
		Payload:   payload,
		Status:    models.JobPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repomanager.Jobs(s.db).Create(ctx, job); err != nil {
		return nil, err
	}

	s.metrics.JobTransition(string(models.JobPending))
	s.activity.Record(ctx, Entry(id, models.ActionEnqueue, "jobs:"+jobType, 1))
	return job, nil
}

// ClaimNext hands the oldest pending job to deviceID. job is nil when the
// queue is empty; hasMore reports whether more jobs are waiting.
func (s *JobService) ClaimNext(ctx context.Context, id *auth.Identity, deviceID string) (job *models.WriteJob, hasMore bool, err error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, false, &validate.FieldError{Field: common.DeviceIDHeaderName, Reason: "required"}
	}

	repo := s.repomanager.Jobs(s.db)
	job, err = repo.ClaimNext(ctx, id.OwnerID, deviceID, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if job == nil {
		return nil, false, nil
	}

	hasMore, err = repo.HasPending(ctx, id.OwnerID)
	if err != nil {
		s.log.Warn(ctx, "pending check failed", "error", err)
		hasMore = false
	}

	s.metrics.JobTransition(string(models.JobClaimed))
	s.activity.Record(ctx, Entry(id, models.ActionClaim, "jobs:"+job.Type, 1))
	return job, hasMore, nil
}

// Complete finishes a job claimed by deviceID. It returns
// common.ErrorNotFound for unknown jobs and common.ErrConflict for jobs
// that are not claimed by deviceID.
func (s *JobService) Complete(ctx context.Context, id *auth.Identity, jobID, deviceID string, success bool, errMsg string) (*models.WriteJob, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, &validate.FieldError{Field: common.DeviceIDHeaderName, Reason: "required"}
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, common.ErrorNotFound
	}

	status := models.JobCompleted
	var reason *string
	if !success {
		status = models.JobFailed
		errMsg = truncateUTF8(errMsg, MaxJobErrorLength)
		if errMsg != "" {
			reason = &errMsg
		}
	}

	repo := s.repomanager.Jobs(s.db)
	ok, err := repo.Finish(ctx, id.OwnerID, jobID, deviceID, status, reason, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Tell a missing job from one that is not ours to finish.
		if _, err := repo.Get(ctx, id.OwnerID, jobID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrorNotFound
			}
			return nil, err
		}
		return nil, common.ErrConflict
	}

	job, err := repo.Get(ctx, id.OwnerID, jobID)
	if err != nil {
		return nil, err
	}
	s.metrics.JobTransition(string(status))
	s.activity.Record(ctx, Entry(id, models.ActionComplete, "jobs:"+job.Type, 1))
	return job, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// List returns jobs newest first, optionally only those with status. Jobs
// older than the caller's data window are not returned.
func (s *JobService) List(ctx context.Context, id *auth.Identity, status string, page Page) ([]*models.WriteJob, error) {
	st := models.JobStatus(status)
	switch st {
	case "", models.JobPending, models.JobClaimed, models.JobCompleted, models.JobFailed:
	default:
		return nil, &validate.FieldError{Field: "status", Reason: "unknown status"}
	}
	since := windowSince(id, s.clock.Now())
	jobs, err := s.repomanager.Jobs(s.db).List(ctx, id.OwnerID, st, since, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, Entry(id, models.ActionRead, "jobs", len(jobs)))
	return jobs, nil
}
