package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// PostgresRepository implements the job queue over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const jobColumns = `id, token_id, type, payload, status, claimed_by, error, created_at, claimed_at, completed_at`

func (r *PostgresRepository) Create(ctx context.Context, job *models.WriteJob) error {
	query := `
		INSERT INTO write_jobs (id, owner_id, token_id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	var tokenID any
	if job.TokenID != "" {
		tokenID = job.TokenID
	}
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.OwnerID, tokenID, job.Type, []byte(job.Payload), string(job.Status), job.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ClaimNext is one statement: the subselect locks the oldest pending row
// and skips rows another claimer already holds, so two devices never get
// the same job.
func (r *PostgresRepository) ClaimNext(ctx context.Context, ownerID, deviceID string, at time.Time) (*models.WriteJob, error) {
	query := `
		UPDATE write_jobs SET status = 'claimed', claimed_by = $2, claimed_at = $3, updated_at = $3
		WHERE id = (
			SELECT id FROM write_jobs
			WHERE owner_id = $1 AND status = 'pending'
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRowContext(ctx, query, ownerID, deviceID, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	job.OwnerID = ownerID
	return job, nil
}

func (r *PostgresRepository) HasPending(ctx context.Context, ownerID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM write_jobs WHERE owner_id = $1 AND status = 'pending')`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Finish(ctx context.Context, ownerID, id, deviceID string, status models.JobStatus, errMsg *string, at time.Time) (bool, error) {
	query := `
		UPDATE write_jobs SET status = $4, error = $5, completed_at = $6, updated_at = $6
		WHERE id = $1 AND owner_id = $2 AND claimed_by = $3 AND status = 'claimed'
	`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, deviceID, string(status), errMsg, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id string) (*models.WriteJob, error) {
	query := `SELECT ` + jobColumns + ` FROM write_jobs WHERE id = $1 AND owner_id = $2`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	job.OwnerID = ownerID
	return job, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, status models.JobStatus, since *time.Time, limit, offset int) ([]*models.WriteJob, error) {
	query := `SELECT ` + jobColumns + ` FROM write_jobs
		WHERE owner_id = $1 AND ($2 = '' OR status = $2)
		AND ($3::timestamptz IS NULL OR created_at >= $3)
		ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`

	var sinceArg any
	if since != nil {
		sinceArg = *since
	}
	rows, err := r.db.QueryContext(ctx, query, ownerID, string(status), sinceArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}
	defer rows.Close()

	var result []*models.WriteJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		job.OwnerID = ownerID
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM write_jobs WHERE status IN ('completed', 'failed') AND updated_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.WriteJob, error) {
	var (
		job         models.WriteJob
		tokenID     sql.NullString
		status      string
		payload     []byte
		claimedBy   sql.NullString
		errMsg      sql.NullString
		claimedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := s.Scan(&job.ID, &tokenID, &job.Type, &payload, &status, &claimedBy, &errMsg,
		&job.CreatedAt, &claimedAt, &completedAt); err != nil {
		return nil, err
	}
	job.TokenID = tokenID.String
	job.Payload = payload
	job.Status = models.JobStatus(status)
	if claimedBy.Valid {
		job.ClaimedBy = &claimedBy.String
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	if claimedAt.Valid {
		job.ClaimedAt = &claimedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
