package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// PostgresRepository implements the activity log over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.ActivityEntry) error {
	query := `
		INSERT INTO activity_log (owner_id, token_id, token_prefix, action, resource, count, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		e.OwnerID, nullable(e.TokenID), nullable(e.TokenPrefix), string(e.Action), e.Resource, e.Count,
		nullable(e.Detail), e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, since *time.Time, limit, offset int) ([]*models.ActivityEntry, error) {
	query := `
		SELECT id, token_id, token_prefix, action, resource, count, detail, created_at
		FROM activity_log
		WHERE owner_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	var sinceArg any
	if since != nil {
		sinceArg = *since
	}
	rows, err := r.db.QueryContext(ctx, query, ownerID, sinceArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select activity: %w", err)
	}
	defer rows.Close()

	var result []*models.ActivityEntry
	for rows.Next() {
		var (
			e                       models.ActivityEntry
			tokenID, prefix, detail sql.NullString
			action                  string
		)
		if err := rows.Scan(&e.ID, &tokenID, &prefix, &action, &e.Resource, &e.Count, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OwnerID = ownerID
		e.TokenID = tokenID.String
		e.TokenPrefix = prefix.String
		e.Detail = detail.String
		e.Action = models.Action(action)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activity_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
