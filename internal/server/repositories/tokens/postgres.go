package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// PostgresRepository implements token storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tokenColumns = `id, owner_id, name, token_hash, prefix, scopes, expires_at, data_window_secs, revoked_at, last_used_at, created_at`

func (r *PostgresRepository) Create(ctx context.Context, t *models.AccessToken) error {
	query := `
		INSERT INTO access_tokens (id, owner_id, name, token_hash, prefix, scopes, expires_at, data_window_secs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.OwnerID, t.Name, t.TokenHash, t.Prefix, strings.Join(t.Scopes, ","),
		t.ExpiresAt, int64(t.DataWindow/time.Second), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*models.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM access_tokens WHERE token_hash = $1`

	t, err := scanToken(r.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]*models.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM access_tokens WHERE owner_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tokens: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, ownerID, id string, at time.Time) error {
	query := `
		UPDATE access_tokens SET revoked_at = COALESCE(revoked_at, $3)
		WHERE id = $1 AND owner_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE access_tokens SET last_used_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(s scanner) (*models.AccessToken, error) {
	var (
		t          models.AccessToken
		scopes     string
		windowSecs int64
		expiresAt  sql.NullTime
		revokedAt  sql.NullTime
		lastUsedAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.OwnerID, &t.Name, &t.TokenHash, &t.Prefix, &scopes,
		&expiresAt, &windowSecs, &revokedAt, &lastUsedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	if scopes != "" {
		t.Scopes = strings.Split(scopes, ",")
	}
	t.DataWindow = time.Duration(windowSecs) * time.Second
	t.ExpiresAt = timePtr(expiresAt)
	t.RevokedAt = timePtr(revokedAt)
	t.LastUsedAt = timePtr(lastUsedAt)
	return &t, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
