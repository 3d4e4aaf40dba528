// Package records stores synced records of every kind described by the
// schema table. One generic implementation serves all kinds.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// Write carries the values every row written by one statement shares.
type Write struct {
	OwnerID  string
	DeviceID string
	SyncTime *time.Time
	// WriteID is stored on insert and never updated, so RETURNING can tell
	// rows this statement inserted from rows it updated.
	WriteID string
	Now     time.Time
	// MutableCutoff is the oldest stored content timestamp an update may
	// touch. Only used by Upsert.
	MutableCutoff time.Time
}

// Outcome is one row a write statement returned.
type Outcome struct {
	Key      string
	Inserted bool
}

// Query selects records for a read.
type Query struct {
	OwnerID string
	// Since, when set, drops records whose content timestamp is older.
	Since   *time.Time
	Filters map[string]string
	Limit   int
	Offset  int
}

type Repository interface {
	// InsertNew inserts recs and ignores natural-key conflicts. Returned
	// outcomes are the rows actually inserted.
	InsertNew(ctx context.Context, kind *schema.Kind, w Write, recs []models.Record) ([]Outcome, error)
	// Upsert inserts recs or updates the kind's mutable columns of existing
	// rows whose tracked values differ. Unchanged rows are not returned.
	Upsert(ctx context.Context, kind *schema.Kind, w Write, recs []models.Record) ([]Outcome, error)
	// InsertChildren inserts child rows of parents, ignoring conflicts, and
	// returns how many were inserted.
	InsertChildren(ctx context.Context, kind *schema.Kind, w Write, parents []models.Record) (int64, error)
	List(ctx context.Context, kind *schema.Kind, q Query) ([]models.Record, error)
	// ListChildren loads child rows grouped by parent natural key.
	ListChildren(ctx context.Context, kind *schema.Kind, ownerID string, parentKeys []string) (map[string][]models.Record, error)
	// DeleteOlderThan removes rows whose retention anchor is before cutoff,
	// children included.
	DeleteOlderThan(ctx context.Context, kind *schema.Kind, cutoff time.Time) (int64, error)
}
