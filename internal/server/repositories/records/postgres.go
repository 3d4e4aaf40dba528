package records

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX (*sql.DB or *sql.Tx).
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

func (w Write) sharedArgs() []any {
	var sync any
	if w.SyncTime != nil {
		sync = *w.SyncTime
	}
	return []any{w.OwnerID, nullable(w.DeviceID), sync, w.WriteID, w.Now}
}

func (r *PostgresRepository) InsertNew(ctx context.Context, kind *schema.Kind, w Write, recs []models.Record) ([]Outcome, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	query, fieldArgs := insertNewSQL(kind, recs)
	args := append(w.sharedArgs(), fieldArgs...)
	return r.outcomes(ctx, query, args)
}

func (r *PostgresRepository) Upsert(ctx context.Context, kind *schema.Kind, w Write, recs []models.Record) ([]Outcome, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	if kind.InsertOnly() {
		return r.InsertNew(ctx, kind, w, recs)
	}
	query, fieldArgs := upsertSQL(kind, recs)
	args := append(w.sharedArgs(), w.MutableCutoff)
	args = append(args, fieldArgs...)
	return r.outcomes(ctx, query, args)
}

func (r *PostgresRepository) outcomes(ctx context.Context, query string, args []any) ([]Outcome, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.Key, &o.Inserted); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// childBatchRows bounds the child rows of one INSERT so the statement stays
// well under the PostgreSQL limit of 65535 bind parameters.
var childBatchRows = 1000

func (r *PostgresRepository) InsertChildren(ctx context.Context, kind *schema.Kind, w Write, parents []models.Record) (int64, error) {
	if kind.Child == nil {
		return 0, nil
	}

	var total int64
	for batch := range slices.Chunk(childRows(parents), childBatchRows) {
		query, args := insertChildrenSQL(kind, w, batch)
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("db error: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected error: %w", err)
		}
		total += affected
	}
	return total, nil
}

func (r *PostgresRepository) List(ctx context.Context, kind *schema.Kind, q Query) ([]models.Record, error) {
	query, args := listSQL(kind, q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", kind.Name, err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var (
			id       int64
			deviceID sql.NullString
			syncTime sql.NullTime
			rec      models.Record
		)
		holders := newHolders(kind.Fields)
		dest := append([]any{&id, &deviceID, &syncTime, &rec.CreatedAt, &rec.UpdatedAt}, holders...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		rec.Values = values(kind.Fields, holders)
		rec.Key, _ = rec.Values[kind.NaturalKey].(string)
		rec.Timestamp, _ = rec.Values[kind.TimestampField].(time.Time)
		rec.DeviceID = deviceID.String
		if syncTime.Valid {
			t := syncTime.Time
			rec.SyncTime = &t
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListChildren(ctx context.Context, kind *schema.Kind, ownerID string, parentKeys []string) (map[string][]models.Record, error) {
	if kind.Child == nil || len(parentKeys) == 0 {
		return map[string][]models.Record{}, nil
	}
	query, args := listChildrenSQL(kind, ownerID, parentKeys)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", kind.Child.Name, err)
	}
	defer rows.Close()

	result := make(map[string][]models.Record)
	for rows.Next() {
		var parent string
		holders := newHolders(kind.Child.Fields)
		if err := rows.Scan(append([]any{&parent}, holders...)...); err != nil {
			return nil, err
		}
		c := models.Record{Values: values(kind.Child.Fields, holders)}
		c.Key, _ = c.Values[kind.Child.NaturalKey].(string)
		result[parent] = append(result[parent], c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, kind *schema.Kind, cutoff time.Time) (int64, error) {
	query := deleteSQL(kind)
	if kind.Child != nil {
		var n int64
		if err := r.db.QueryRowContext(ctx, query, cutoff).Scan(&n); err != nil {
			return 0, fmt.Errorf("db error: %w", err)
		}
		return n, nil
	}

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

func newHolders(fields []schema.Field) []any {
	hs := make([]any, len(fields))
	for i, f := range fields {
		switch f.Type {
		case schema.Bool:
			hs[i] = new(sql.NullBool)
		case schema.Int:
			hs[i] = new(sql.NullInt64)
		case schema.Float:
			hs[i] = new(sql.NullFloat64)
		case schema.Time:
			hs[i] = new(sql.NullTime)
		default:
			hs[i] = new(sql.NullString)
		}
	}
	return hs
}

func values(fields []schema.Field, holders []any) map[string]any {
	out := make(map[string]any, len(fields))
	for i, f := range fields {
		var v any
		switch h := holders[i].(type) {
		case *sql.NullString:
			if h.Valid {
				v = h.String
			}
		case *sql.NullBool:
			if h.Valid {
				v = h.Bool
			}
		case *sql.NullInt64:
			if h.Valid {
				v = h.Int64
			}
		case *sql.NullFloat64:
			if h.Valid {
				v = h.Float64
			}
		case *sql.NullTime:
			if h.Valid {
				v = h.Time.UTC()
			}
		}
		out[f.Name] = v
	}
	return out
}
