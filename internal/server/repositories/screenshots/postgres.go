package screenshots

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// PostgresRepository implements screenshot metadata storage over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Screenshot) (bool, error) {
	query := `
		INSERT INTO screenshots (id, owner_id, screenshot_id, device_id, storage_key, size_bytes, width, height, captured_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (owner_id, screenshot_id) DO NOTHING
	`
	var device any
	if s.DeviceID != "" {
		device = s.DeviceID
	}
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.OwnerID, s.ScreenshotID, device, s.StorageKey, s.SizeBytes, s.Width, s.Height, s.CapturedAt, s.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, since *time.Time, limit, offset int) ([]*models.Screenshot, error) {
	query := `
		SELECT id, screenshot_id, device_id, storage_key, size_bytes, width, height, captured_at, created_at
		FROM screenshots
		WHERE owner_id = $1 AND ($2::timestamptz IS NULL OR captured_at >= $2)
		ORDER BY captured_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	var sinceArg any
	if since != nil {
		sinceArg = *since
	}
	rows, err := r.db.QueryContext(ctx, query, ownerID, sinceArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select screenshots: %w", err)
	}
	defer rows.Close()

	var result []*models.Screenshot
	for rows.Next() {
		var (
			item          models.Screenshot
			device        sql.NullString
			width, height sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.ScreenshotID, &device, &item.StorageKey, &item.SizeBytes,
			&width, &height, &item.CapturedAt, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.OwnerID = ownerID
		item.DeviceID = device.String
		item.Width = intPtr(width)
		item.Height = intPtr(height)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM screenshots WHERE captured_at < $1 RETURNING storage_key`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
