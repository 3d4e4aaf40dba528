package records

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// Leading columns shared by every parent table. Values are passed once as
// $1..$5 and reused by every VALUES row.
var sharedColumns = []string{"owner_id", "device_id", "sync_time", "write_id", "created_at", "updated_at"}

const sharedParams = 5

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

// insertSQL builds the multi-row INSERT shared by InsertNew and Upsert.
// extra is the number of statement-level parameters after the shared ones.
func insertSQL(kind *schema.Kind, recs []models.Record, extra int) (string, []any) {
	cols := kind.Columns()
	next := sharedParams + extra + 1

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s, %s) VALUES ",
		kind.Table, strings.Join(sharedColumns, ", "), strings.Join(cols, ", "))

	args := make([]any, 0, len(recs)*len(cols))
	for i, rec := range recs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($1, $2, $3, $4, $5, $5, %s)", placeholders(next, len(cols)))
		next += len(cols)
		for _, f := range kind.Fields {
			args = append(args, rec.Values[f.Name])
		}
	}
	return b.String(), args
}

func insertNewSQL(kind *schema.Kind, recs []models.Record) (string, []any) {
	q, args := insertSQL(kind, recs, 0)
	q += fmt.Sprintf(" ON CONFLICT (owner_id, %s) DO NOTHING RETURNING %s, write_id = $4 AS inserted",
		kind.KeyColumn(), kind.KeyColumn())
	return q, args
}

// upsertSQL only rewrites mutable columns plus device/sync metadata, only
// when a tracked value differs, and only while the stored row is still
// inside the mutable window ($6).
func upsertSQL(kind *schema.Kind, recs []models.Record) (string, []any) {
	q, args := insertSQL(kind, recs, 1)

	mutable := kind.MutableColumns()
	set := make([]string, 0, len(mutable)+3)
	current := make([]string, len(mutable))
	excluded := make([]string, len(mutable))
	for i, c := range mutable {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		current[i] = kind.Table + "." + c
		excluded[i] = "EXCLUDED." + c
	}
	set = append(set, "device_id = EXCLUDED.device_id", "sync_time = EXCLUDED.sync_time", "updated_at = EXCLUDED.updated_at")

	q += fmt.Sprintf(" ON CONFLICT (owner_id, %s) DO UPDATE SET %s WHERE %s.%s >= $6 AND (%s) IS DISTINCT FROM (%s) RETURNING %s, write_id = $4 AS inserted",
		kind.KeyColumn(), strings.Join(set, ", "),
		kind.Table, kind.TimestampColumn(),
		strings.Join(current, ", "), strings.Join(excluded, ", "),
		kind.KeyColumn())
	return q, args
}

// childRow is one child record paired with its parent's natural key.
type childRow struct {
	parentKey string
	rec       models.Record
}

func childRows(parents []models.Record) []childRow {
	var out []childRow
	for _, p := range parents {
		for _, c := range p.Children {
			out = append(out, childRow{parentKey: p.Key, rec: c})
		}
	}
	return out
}

func insertChildrenSQL(kind *schema.Kind, w Write, rows []childRow) (string, []any) {
	child := kind.Child
	cols := child.Columns()

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (owner_id, created_at, %s, %s) VALUES ",
		child.Table, kind.ParentColumn, strings.Join(cols, ", "))

	args := []any{w.OwnerID, w.Now}
	next := 3
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($1, $2, %s)", placeholders(next, len(cols)+1))
		next += len(cols) + 1
		args = append(args, row.parentKey)
		for _, f := range child.Fields {
			args = append(args, row.rec.Values[f.Name])
		}
	}
	fmt.Fprintf(&b, " ON CONFLICT (owner_id, %s) DO NOTHING", child.KeyColumn())
	return b.String(), args
}

func listSQL(kind *schema.Kind, q Query) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, device_id, sync_time, created_at, updated_at, %s FROM %s WHERE owner_id = $1",
		strings.Join(kind.Columns(), ", "), kind.Table)
	args := []any{q.OwnerID}

	if q.Since != nil {
		args = append(args, *q.Since)
		fmt.Fprintf(&b, " AND %s >= $%d", kind.TimestampColumn(), len(args))
	}
	// Filters are applied in schema order so the SQL is deterministic.
	for _, f := range kind.Filters() {
		v, ok := q.Filters[f.Name]
		if !ok {
			continue
		}
		args = append(args, v)
		fmt.Fprintf(&b, " AND %s = $%d", f.Column, len(args))
	}

	args = append(args, q.Limit, q.Offset)
	fmt.Fprintf(&b, " ORDER BY %s DESC, id DESC LIMIT $%d OFFSET $%d", kind.TimestampColumn(), len(args)-1, len(args))
	return b.String(), args
}

func listChildrenSQL(kind *schema.Kind, ownerID string, parentKeys []string) (string, []any) {
	child := kind.Child
	args := make([]any, 0, len(parentKeys)+1)
	args = append(args, ownerID)
	for _, k := range parentKeys {
		args = append(args, k)
	}
	q := fmt.Sprintf("SELECT %s, %s FROM %s WHERE owner_id = $1 AND %s IN (%s) ORDER BY id",
		kind.ParentColumn, strings.Join(child.Columns(), ", "), child.Table,
		kind.ParentColumn, placeholders(2, len(parentKeys)))
	return q, args
}

// deleteSQL removes expired parents and, in the same statement, their
// children.
func deleteSQL(kind *schema.Kind) string {
	if kind.Child == nil {
		return fmt.Sprintf("DELETE FROM %s WHERE %s < $1", kind.Table, kind.RetentionAnchor)
	}
	return fmt.Sprintf(`WITH doomed AS (DELETE FROM %s WHERE %s < $1 RETURNING owner_id, %s), `+
		`orphans AS (DELETE FROM %s c USING doomed d WHERE c.owner_id = d.owner_id AND c.%s = d.%s RETURNING 1) `+
		`SELECT count(*) FROM doomed`,
		kind.Table, kind.RetentionAnchor, kind.KeyColumn(),
		kind.Child.Table, kind.ParentColumn, kind.KeyColumn())
}
