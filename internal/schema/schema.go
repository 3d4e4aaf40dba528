// Package schema is the single table describing every synced record kind:
// its natural key, content timestamp, fields, which fields may change on
// resubmission and for how long. The validator, the reconciler, the read
// path, the retention sweeper and the owner CLI all consume it.
package schema

import (
	"slices"
	"time"
)

// FieldType says how a field is validated and stored.
type FieldType int

const (
	// Text is an opaque plaintext string (ids, service names, colours).
	Text FieldType = iota
	// Encrypted must be a text envelope. Empty is rejected.
	Encrypted
	// EncryptedOrEmpty is a text envelope or "".
	EncryptedOrEmpty
	// BlindIndex is 64 lowercase hex characters or "".
	BlindIndex
	Bool
	Int
	Float
	// Time is an RFC 3339 string or epoch milliseconds.
	Time
)

func (t FieldType) String() string {
	switch t {
	case Text:
		return "text"
	case Encrypted:
		return "encrypted"
	case EncryptedOrEmpty:
		return "encrypted-or-empty"
	case BlindIndex:
		return "blind-index"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Time:
		return "time"
	}
	return "unknown"
}

// IsEncrypted reports whether values of t are ciphertext.
func (t FieldType) IsEncrypted() bool {
	return t == Encrypted || t == EncryptedOrEmpty
}

// Field is one JSON property of a record and its column.
type Field struct {
	Name     string
	Column   string
	Type     FieldType
	Required bool
	// Filter exposes the field as an exact-match read query parameter.
	Filter bool
}

// DefaultMutableWindow is how long after its content timestamp a record
// still accepts changes to its mutable fields.
const DefaultMutableWindow = 60 * 24 * time.Hour

// Kind describes one synced record type.
type Kind struct {
	Name string
	// ItemsField is the request property holding the batch.
	ItemsField string
	// Scope is the name of the token scope gating the kind's endpoints.
	Scope string
	Table string
	// NaturalKey is the field unique per owner.
	NaturalKey string
	// TimestampField is the content timestamp used for the mutable window
	// and for data-window reads.
	TimestampField string
	Fields         []Field
	// MutableFields may change on resubmission while the record's content
	// timestamp is within MutableWindow. Empty means insert-only.
	MutableFields []string
	MutableWindow time.Duration
	// RetentionAnchor is the column retention compares against.
	RetentionAnchor string

	// Child rows inserted together with a newly inserted parent.
	Child *Kind
	// ChildFlag is the boolean parent field declaring children present.
	ChildFlag string
	// ParentColumn is the child column holding the parent's natural key.
	ParentColumn string
}

// Field looks up a field by JSON name.
func (k *Kind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// KeyColumn is the column of the natural key.
func (k *Kind) KeyColumn() string {
	f, _ := k.Field(k.NaturalKey)
	return f.Column
}

// TimestampColumn is the column of the content timestamp.
func (k *Kind) TimestampColumn() string {
	f, _ := k.Field(k.TimestampField)
	return f.Column
}

// InsertOnly reports whether the kind never updates existing rows.
func (k *Kind) InsertOnly() bool {
	return len(k.MutableFields) == 0 || k.MutableWindow <= 0
}

// IsMutable reports whether field name is in the update allow-list.
func (k *Kind) IsMutable(name string) bool {
	return slices.Contains(k.MutableFields, name)
}

// Columns lists the field columns in declaration order.
func (k *Kind) Columns() []string {
	cols := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		cols[i] = f.Column
	}
	return cols
}

// MutableColumns lists the columns of MutableFields in declaration order.
func (k *Kind) MutableColumns() []string {
	var cols []string
	for _, f := range k.Fields {
		if k.IsMutable(f.Name) {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// Filters lists the fields usable as read filters.
func (k *Kind) Filters() []Field {
	var out []Field
	for _, f := range k.Fields {
		if f.Filter {
			out = append(out, f)
		}
	}
	return out
}

// EncryptedFields lists the fields a reader has to decrypt.
func (k *Kind) EncryptedFields() []Field {
	var out []Field
	for _, f := range k.Fields {
		if f.Type.IsEncrypted() {
			out = append(out, f)
		}
	}
	return out
}
