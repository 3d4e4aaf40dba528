package validate

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/schema"
)

// MaxBatchSize bounds the number of records in one sync request.
const MaxBatchSize = 1000

// SyncRequest is the decoded envelope of a sync POST.
type SyncRequest struct {
	Items    []json.RawMessage
	SyncTime *time.Time
	DeviceID string
}

// DecodeSyncRequest reads {<items>: [...], syncTime?, deviceId?, count?}.
// The items property is named after the kind. count is informational and
// ignored. Anything else is a FieldError.
func DecodeSyncRequest(kind *schema.Kind, body []byte) (*SyncRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fieldErr("", "request body must be a JSON object")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fieldErr("", "invalid JSON: %v", err)
	}

	req := &SyncRequest{}
	for name, raw := range obj {
		switch name {
		case kind.ItemsField:
			if err := json.Unmarshal(raw, &req.Items); err != nil {
				return nil, fieldErr(name, "must be an array")
			}
		case "syncTime":
			if isNull(raw) {
				continue
			}
			t, err := ParseTime(raw)
			if err != nil {
				return nil, fieldErr(name, "%v", err)
			}
			req.SyncTime = &t
		case "deviceId":
			if isNull(raw) {
				continue
			}
			if err := json.Unmarshal(raw, &req.DeviceID); err != nil {
				return nil, fieldErr(name, "must be a string")
			}
			req.DeviceID = strings.TrimSpace(req.DeviceID)
			if len(req.DeviceID) > MaxKeyLength {
				return nil, fieldErr(name, "longer than %d bytes", MaxKeyLength)
			}
		case "count":
		default:
			return nil, fieldErr(name, "unknown field")
		}
	}

	if _, ok := obj[kind.ItemsField]; !ok {
		return nil, fieldErr(kind.ItemsField, "required")
	}
	if len(req.Items) > MaxBatchSize {
		return nil, fieldErr(kind.ItemsField, "at most %d records per request", MaxBatchSize)
	}
	return req, nil
}
