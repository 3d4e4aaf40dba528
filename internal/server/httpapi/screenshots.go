package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
)

// maxScreenshotBody leaves room for the base64 data URL of the largest
// accepted blob.
const maxScreenshotBody = validate.MaxScreenshotBytes/3*4 + 64<<10

func (s *Server) handleUploadScreenshot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r, auth.ScopeScreenshots)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScreenshotBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, &validate.FieldError{Field: "image", Reason: "request body too large"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	up, err := validate.DecodeScreenshotUpload(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	inserted, err := s.svc.Screenshots.Upload(r.Context(), id, up, r.Header.Get(common.DeviceIDHeaderName))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := syncResponse{Success: true, Rejected: []validate.Rejection{}}
	status := http.StatusOK
	if inserted {
		resp.InsertedCount = 1
		status = http.StatusCreated
	} else {
		resp.SkippedCount = 1
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListScreenshots(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r, auth.ScopeScreenshots)
	if !ok {
		return
	}
	page, ok := s.page(w, r)
	if !ok {
		return
	}

	shots, err := s.svc.Screenshots.List(r.Context(), id, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if shots == nil {
		shots = []services.ScreenshotView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"screenshots": shots, "count": len(shots)})
}
