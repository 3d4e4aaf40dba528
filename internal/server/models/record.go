// Package models defines server-side data models persisted in the database.
package models

import "time"

// Record is one synced row of any kind. Values are keyed by JSON field name
// and hold normalized Go values: string, bool, int64, float64, time.Time or
// nil for an absent optional field.
type Record struct {
	Key       string
	Timestamp time.Time
	Values    map[string]any
	Children  []Record

	// Set by storage on reads.
	DeviceID  string
	SyncTime  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document renders the record as the JSON object returned by reads.
func (r Record) Document(childrenField string) map[string]any {
	doc := make(map[string]any, len(r.Values)+5)
	for k, v := range r.Values {
		doc[k] = v
	}
	doc["deviceId"] = r.DeviceID
	doc["syncTime"] = r.SyncTime
	doc["createdAt"] = r.CreatedAt
	doc["updatedAt"] = r.UpdatedAt
	if childrenField != "" {
		children := make([]map[string]any, 0, len(r.Children))
		for _, c := range r.Children {
			children = append(children, c.Values)
		}
		doc[childrenField] = children
	}
	return doc
}

// ReconcileResult counts what one batch did to storage.
type ReconcileResult struct {
	Inserted int `json:"insertedCount"`
	Updated  int `json:"updatedCount"`
	Skipped  int `json:"skippedCount"`
}

// Add accumulates o into r.
func (r *ReconcileResult) Add(o ReconcileResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Skipped += o.Skipped
}
