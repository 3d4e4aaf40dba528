package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/blindindex"
	"github.com/dmitrijs2005/ctxvault/internal/cryptox"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
)

// MaxKeyLength bounds natural keys and other plaintext ids.
const MaxKeyLength = 255

// MaxChildrenPerRecord bounds the child items one record may carry.
const MaxChildrenPerRecord = 100

// Rejection is one record refused by Batch.
type Rejection struct {
	Index  int             `json:"index"`
	Raw    json.RawMessage `json:"raw,omitempty"`
	Reason string          `json:"reason"`
}

// Result partitions a batch.
type Result struct {
	Valid    []models.Record
	Rejected []Rejection
}

// Batch validates every item independently. Valid records keep their
// submission order.
func Batch(kind *schema.Kind, items []json.RawMessage) Result {
	res := Result{Valid: make([]models.Record, 0, len(items))}
	for i, raw := range items {
		rec, err := Record(kind, raw)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Raw: raw, Reason: err.Error()})
			continue
		}
		res.Valid = append(res.Valid, rec)
	}
	return res
}

// Record validates one raw record. Optional fields that are absent come
// back as explicit nil values.
func Record(kind *schema.Kind, raw json.RawMessage) (models.Record, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return models.Record{}, err
	}

	childrenField := ""
	if kind.Child != nil {
		childrenField = kind.Child.ItemsField
	}
	if err := rejectUnknown(kind, obj, childrenField); err != nil {
		return models.Record{}, err
	}

	rec := models.Record{Values: make(map[string]any, len(kind.Fields))}
	for _, f := range kind.Fields {
		v, err := field(f, obj[f.Name])
		if err != nil {
			return models.Record{}, err
		}
		rec.Values[f.Name] = v
	}

	rec.Key, _ = rec.Values[kind.NaturalKey].(string)
	if kind.TimestampField != "" {
		rec.Timestamp, _ = rec.Values[kind.TimestampField].(time.Time)
	}

	if kind.Child != nil {
		children, err := childRecords(kind, rec, obj[childrenField])
		if err != nil {
			return models.Record{}, err
		}
		rec.Children = children
	}

	return rec, nil
}

func childRecords(kind *schema.Kind, parent models.Record, raw json.RawMessage) ([]models.Record, error) {
	declared, _ := parent.Values[kind.ChildFlag].(bool)
	name := kind.Child.ItemsField

	var items []json.RawMessage
	if len(raw) > 0 && !isNull(raw) {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%s: must be an array", name)
		}
	}
	if declared && len(items) == 0 {
		return nil, fmt.Errorf("%s: %s is true but no %s were sent", name, kind.ChildFlag, name)
	}
	if len(items) > MaxChildrenPerRecord {
		return nil, fmt.Errorf("%s: at most %d allowed, got %d", name, MaxChildrenPerRecord, len(items))
	}

	out := make([]models.Record, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		c, err := Record(kind.Child, item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("%s[%d]: duplicate %s %q", name, i, kind.Child.NaturalKey, c.Key)
		}
		seen[c.Key] = true
		out = append(out, c)
	}
	return out, nil
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("record must be a JSON object")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("record is not valid JSON: %v", err)
	}
	return obj, nil
}

func rejectUnknown(kind *schema.Kind, obj map[string]json.RawMessage, extra string) error {
	var unknown []string
	for name := range obj {
		if name == extra {
			continue
		}
		if _, ok := kind.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown field %s", strings.Join(unknown, ", "))
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func field(f schema.Field, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || isNull(raw) {
		if f.Required {
			return nil, fmt.Errorf("%s: required", f.Name)
		}
		return nil, nil
	}

	switch f.Type {
	case schema.Text:
		s, err := str(f, raw)
		if err != nil {
			return nil, err
		}
		if f.Required && s == "" {
			return nil, fmt.Errorf("%s: required", f.Name)
		}
		if len(s) > MaxKeyLength {
			return nil, fmt.Errorf("%s: longer than %d bytes", f.Name, MaxKeyLength)
		}
		return s, nil

	case schema.Encrypted, schema.EncryptedOrEmpty:
		s, err := str(f, raw)
		if err != nil {
			return nil, err
		}
		if s == "" {
			if f.Type == schema.Encrypted {
				return nil, fmt.Errorf("%s: required", f.Name)
			}
			return "", nil
		}
		if err := cryptox.CheckEnvelope(s); err != nil {
			if errors.Is(err, cryptox.ErrNotEncrypted) {
				return nil, fmt.Errorf("%s: plaintext not allowed, expected encrypted value", f.Name)
			}
			return nil, fmt.Errorf("%s: %v", f.Name, err)
		}
		return s, nil

	case schema.BlindIndex:
		s, err := str(f, raw)
		if err != nil {
			return nil, err
		}
		if s != "" && !blindindex.Valid(s) {
			return nil, fmt.Errorf("%s: expected %d lowercase hex characters", f.Name, blindindex.Size)
		}
		return s, nil

	case schema.Bool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%s: expected boolean", f.Name)
		}
		return b, nil

	case schema.Int:
		n, err := number(f, raw)
		if err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s: expected integer", f.Name)
		}
		return i, nil

	case schema.Float:
		n, err := number(f, raw)
		if err != nil {
			return nil, err
		}
		v, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s: expected number", f.Name)
		}
		return v, nil

	case schema.Time:
		t, err := ParseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", f.Name, err)
		}
		return t, nil
	}

	return nil, fmt.Errorf("%s: unsupported field type %s", f.Name, f.Type)
}

func str(f schema.Field, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: expected string", f.Name)
	}
	return s, nil
}

func number(f schema.Field, raw json.RawMessage) (json.Number, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%s: expected number", f.Name)
	}
	n, ok := v.(json.Number)
	if !ok {
		return "", fmt.Errorf("%s: expected number", f.Name)
	}
	return n, nil
}

// ParseTime accepts an RFC 3339 string or epoch milliseconds and returns UTC.
func ParseTime(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, errors.New("expected RFC 3339 timestamp")
		}
		return t.UTC(), nil
	}

	var ms json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ms); err != nil {
		return time.Time{}, errors.New("expected RFC 3339 timestamp or epoch milliseconds")
	}
	n, err := ms.Int64()
	if err != nil {
		return time.Time{}, errors.New("expected integer epoch milliseconds")
	}
	return time.UnixMilli(n).UTC(), nil
}
