package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
)

type retentionResponse struct {
	Success bool                            `json:"success"`
	Results map[string]services.SweepResult `json:"results"`
}

// handleRetention runs a sweep for an external scheduler. The caller
// presents the cron secret as a bearer token; with no secret configured
// the endpoint refuses everyone.
func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	secret := s.config.CronSecret
	got, ok := auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
	if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	results, err := s.svc.Retention.RunOnce(r.Context())
	if err != nil && results == nil {
		s.writeError(w, r, err)
		return
	}
	if err != nil {
		s.logger.Error(r.Context(), "retention sweep incomplete", "error", err)
		writeJSON(w, http.StatusInternalServerError, retentionResponse{Success: false, Results: results})
		return
	}
	writeJSON(w, http.StatusOK, retentionResponse{Success: true, Results: results})
}
