package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/cryptox"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codec = func() *cryptox.Codec {
	c, err := cryptox.NewCodec("test-pass")
	if err != nil {
		panic(err)
	}
	return c
}()

func enc(s string) string { return codec.EncryptString(s) }

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func message(guid string) map[string]any {
	return map[string]any{
		"guid":   guid,
		"text":   enc("hello " + guid),
		"date":   "2026-03-01T10:00:00Z",
		"isRead": false,
	}
}

func TestRecord_ValidMessage(t *testing.T) {
	rec, err := Record(schema.Messages, mustJSON(t, message("m1")))
	require.NoError(t, err)

	assert.Equal(t, "m1", rec.Key)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), rec.Timestamp)
	assert.Equal(t, false, rec.Values["isRead"])

	// optional fields are present as explicit nil
	v, ok := rec.Values["subject"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Len(t, rec.Values, len(schema.Messages.Fields))
	assert.Empty(t, rec.Children)
}

func TestRecord_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		reason string
	}{
		{"missing key", func(m map[string]any) { delete(m, "guid") }, "guid: required"},
		{"empty key", func(m map[string]any) { m["guid"] = "" }, "guid: required"},
		{"long key", func(m map[string]any) { m["guid"] = strings.Repeat("g", 256) }, "guid: longer than"},
		{"plaintext content", func(m map[string]any) { m["text"] = "hello" }, "text: plaintext not allowed"},
		{"malformed envelope", func(m map[string]any) { m["text"] = "enc:v1:abc" }, "malformed envelope"},
		{"unknown version", func(m map[string]any) { m["text"] = "enc:v9:a:b:c" }, "unsupported envelope version"},
		{"bad index", func(m map[string]any) { m["handleIndex"] = "ABC" }, "handleIndex: expected 64"},
		{"bad bool", func(m map[string]any) { m["isRead"] = "yes" }, "isRead: expected boolean"},
		{"bad time", func(m map[string]any) { m["date"] = "yesterday" }, "date: expected RFC 3339"},
		{"missing time", func(m map[string]any) { delete(m, "date") }, "date: required"},
		{"unknown field", func(m map[string]any) { m["body"] = "x" }, "unknown field body"},
		{"flag without attachments", func(m map[string]any) { m["hasAttachments"] = true }, "hasAttachments is true"},
		{"attachment without data", func(m map[string]any) {
			m["hasAttachments"] = true
			m["attachments"] = []any{
				map[string]any{"attachmentId": "a1", "data": enc("bytes")},
				map[string]any{"attachmentId": "a2", "mimeType": "image/png"},
			}
		}, "attachments[1]: data: required"},
		{"attachment with plaintext data", func(m map[string]any) {
			m["hasAttachments"] = true
			m["attachments"] = []any{map[string]any{"attachmentId": "a1", "data": "raw bytes"}}
		}, "attachments[0]: data: plaintext not allowed"},
		{"attachments not array", func(m map[string]any) { m["attachments"] = "x" }, "attachments: must be an array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := message("m1")
			tt.mutate(m)
			_, err := Record(schema.Messages, mustJSON(t, m))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestRecord_NotAnObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"x"`, `42`, `null`, `{`} {
		_, err := Record(schema.Notes, json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestRecord_Attachments(t *testing.T) {
	m := message("m1")
	m["hasAttachments"] = true
	m["attachments"] = []any{
		map[string]any{"attachmentId": "a1", "data": enc("bytes"), "mimeType": "image/jpeg", "totalBytes": 5},
	}

	rec, err := Record(schema.Messages, mustJSON(t, m))
	require.NoError(t, err)
	require.Len(t, rec.Children, 1)
	assert.Equal(t, "a1", rec.Children[0].Key)
	assert.Equal(t, int64(5), rec.Children[0].Values["totalBytes"])
	assert.Nil(t, rec.Children[0].Values["filename"])
}

func TestRecord_TooManyAttachments(t *testing.T) {
	m := message("m1")
	m["hasAttachments"] = true
	var items []any
	for i := range MaxChildrenPerRecord + 1 {
		items = append(items, map[string]any{"attachmentId": fmt.Sprintf("a%d", i), "data": enc("bytes")})
	}
	m["attachments"] = items

	_, err := Record(schema.Messages, mustJSON(t, m))
	assert.ErrorContains(t, err, "attachments: at most 100 allowed")

	m["attachments"] = items[:MaxChildrenPerRecord]
	rec, err := Record(schema.Messages, mustJSON(t, m))
	require.NoError(t, err)
	assert.Len(t, rec.Children, MaxChildrenPerRecord)
}

func TestRecord_NumericAndEpochTypes(t *testing.T) {
	raw := mustJSON(t, map[string]any{
		"reminderId": "r1",
		"title":      enc("buy milk"),
		"priority":   3,
		"modifiedAt": 1767225600000,
		"notes":      "",
		"titleIndex": "",
	})
	rec, err := Record(schema.Reminders, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Values["priority"])
	assert.Equal(t, time.UnixMilli(1767225600000).UTC(), rec.Timestamp)
	assert.Equal(t, "", rec.Values["notes"])

	raw = mustJSON(t, map[string]any{"reminderId": "r1", "title": enc("x"), "priority": 1.5, "modifiedAt": 0})
	_, err = Record(schema.Reminders, raw)
	assert.ErrorContains(t, err, "priority: expected integer")

	raw = mustJSON(t, map[string]any{"locationId": "l1", "latitude": enc("1"), "longitude": enc("2"), "accuracy": 4.5, "capturedAt": "2026-01-01T00:00:00+02:00"})
	rec, err = Record(schema.Locations, raw)
	require.NoError(t, err)
	assert.Equal(t, 4.5, rec.Values["accuracy"])
	assert.Equal(t, time.Date(2025, 12, 31, 22, 0, 0, 0, time.UTC), rec.Timestamp)
}

func TestBatch_PartialRejection(t *testing.T) {
	items := make([]json.RawMessage, 10)
	for i := range items {
		items[i] = mustJSON(t, message(fmt.Sprintf("m%d", i)))
	}
	bad := message("m3")
	bad["text"] = "plaintext"
	items[3] = mustJSON(t, bad)

	res := Batch(schema.Messages, items)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 3, res.Rejected[0].Index)
	assert.JSONEq(t, string(items[3]), string(res.Rejected[0].Raw))
	assert.Contains(t, res.Rejected[0].Reason, "plaintext")

	require.Len(t, res.Valid, 9)
	assert.Equal(t, "m0", res.Valid[0].Key)
	assert.Equal(t, "m4", res.Valid[3].Key)
}

func TestDecodeSyncRequest(t *testing.T) {
	body := `{"notes":[{"noteId":"n1"}],"syncTime":"2026-03-01T00:00:00Z","deviceId":" mac ","count":1}`
	req, err := DecodeSyncRequest(schema.Notes, []byte(body))
	require.NoError(t, err)
	assert.Len(t, req.Items, 1)
	assert.Equal(t, "mac", req.DeviceID)
	require.NotNil(t, req.SyncTime)
	assert.Equal(t, 2026, req.SyncTime.Year())
}

func TestDecodeSyncRequest_Errors(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{`[]`, ""},
		{`{"notes":`, ""},
		{`{}`, "notes"},
		{`{"notes":{}}`, "notes"},
		{`{"notes":[],"extra":1}`, "extra"},
		{`{"notes":[],"syncTime":"soon"}`, "syncTime"},
		{`{"notes":[],"deviceId":5}`, "deviceId"},
		{`{"messages":[]}`, "messages"},
	}
	for _, tt := range tests {
		_, err := DecodeSyncRequest(schema.Notes, []byte(tt.body))
		var fe *FieldError
		require.ErrorAs(t, err, &fe, tt.body)
		assert.Equal(t, tt.field, fe.Field, tt.body)
	}
}

func TestDecodeSyncRequest_TooLarge(t *testing.T) {
	items := make([]json.RawMessage, MaxBatchSize+1)
	for i := range items {
		items[i] = json.RawMessage(`{}`)
	}
	body := mustJSON(t, map[string]any{"stickies": items})

	_, err := DecodeSyncRequest(schema.Stickies, body)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "stickies", fe.Field)
}
