package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/cryptox"
)

// MaxScreenshotBytes bounds a decoded screenshot blob.
const MaxScreenshotBytes = 20 << 20

// ScreenshotUpload is a decoded screenshot POST.
type ScreenshotUpload struct {
	ScreenshotID string
	CapturedAt   time.Time
	// Blob is the binary CTXE envelope, already checked structurally.
	Blob     []byte
	Width    *int
	Height   *int
	DeviceID string
}

type screenshotBody struct {
	ScreenshotID string          `json:"screenshotId"`
	CapturedAt   json.RawMessage `json:"capturedAt"`
	Image        string          `json:"image"`
	Width        *int            `json:"width"`
	Height       *int            `json:"height"`
	DeviceID     string          `json:"deviceId"`
}

// DecodeScreenshotUpload reads {screenshotId, capturedAt, image, width?,
// height?, deviceId?}. image is a data URL of a CTXE envelope; plaintext
// images are refused.
func DecodeScreenshotUpload(body []byte) (*ScreenshotUpload, error) {
	var b screenshotBody
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, fieldErr("", "invalid JSON: %v", err)
	}

	id := strings.TrimSpace(b.ScreenshotID)
	if id == "" {
		return nil, fieldErr("screenshotId", "required")
	}
	if len(id) > MaxKeyLength {
		return nil, fieldErr("screenshotId", "longer than %d bytes", MaxKeyLength)
	}
	if len(b.CapturedAt) == 0 || isNull(b.CapturedAt) {
		return nil, fieldErr("capturedAt", "required")
	}
	captured, err := ParseTime(b.CapturedAt)
	if err != nil {
		return nil, fieldErr("capturedAt", "%v", err)
	}
	for name, v := range map[string]*int{"width": b.Width, "height": b.Height} {
		if v != nil && *v <= 0 {
			return nil, fieldErr(name, "must be positive")
		}
	}

	if b.Image == "" {
		return nil, fieldErr("image", "required")
	}
	blob, err := cryptox.DecodeBlobDataURL(b.Image)
	if err != nil {
		return nil, fieldErr("image", "not an encrypted blob data URL")
	}
	if len(blob) > MaxScreenshotBytes {
		return nil, fieldErr("image", "larger than %d bytes", MaxScreenshotBytes)
	}
	if err := cryptox.CheckBlob(blob); err != nil {
		if errors.Is(err, cryptox.ErrNotEncrypted) {
			return nil, fieldErr("image", "must be encrypted")
		}
		return nil, fieldErr("image", "%v", err)
	}

	return &ScreenshotUpload{
		ScreenshotID: id,
		CapturedAt:   captured,
		Blob:         blob,
		Width:        b.Width,
		Height:       b.Height,
		DeviceID:     strings.TrimSpace(b.DeviceID),
	}, nil
}
