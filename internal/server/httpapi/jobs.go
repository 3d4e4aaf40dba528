package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/go-chi/chi/v5"
)

const maxJobBody = 1 << 20

type enqueueRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type completeRequest struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type claimResponse struct {
	Job     *models.WriteJob `json:"job"`
	HasMore bool             `json:"hasMore"`
}

func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r, auth.ScopeJobs)
	if !ok {
		return
	}
	var req enqueueRequest
	if err := decodeJSON(w, r, maxJobBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.svc.Jobs.Enqueue(r.Context(), id, req.Type, req.Payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r, auth.ScopeJobs)
	if !ok {
		return
	}
	page, ok := s.page(w, r, "status")
	if !ok {
		return
	}

	jobs, err := s.svc.Jobs.List(r.Context(), id, r.URL.Query().Get("status"), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*models.WriteJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// handleClaimJob hands the oldest pending job to the device named in the
// X-Device-Id header. job is null when the queue is empty.
func (s *Server) handleClaimJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r, auth.ScopeJobs)
	if !ok {
		return
	}

	job, hasMore, err := s.svc.Jobs.ClaimNext(r.Context(), id, r.Header.Get(common.DeviceIDHeaderName))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Job: job, HasMore: hasMore})
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r, auth.ScopeJobs)
	if !ok {
		return
	}
	var req completeRequest
	if err := decodeJSON(w, r, maxJobBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.svc.Jobs.Complete(r.Context(), id, chi.URLParam(r, "id"),
		r.Header.Get(common.DeviceIDHeaderName), req.Success, req.Error)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
