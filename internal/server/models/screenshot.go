package models

import "time"

// Screenshot describes an encrypted screenshot. The CTXE blob itself lives
// in object storage under StorageKey.
type Screenshot struct {
	ID           string
	OwnerID      string
	ScreenshotID string
	DeviceID     string
	// StorageKey is the object-storage key of the ciphertext blob.
	StorageKey string
	SizeBytes  int64
	Width      *int
	Height     *int
	CapturedAt time.Time
	CreatedAt  time.Time
}
