package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/go-chi/chi/v5"
)

const maxAdminBody = 64 << 10

type sessionRequest struct {
	Password string `json:"password"`
}

type createTokenRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expiresAt"`
	// DataWindow is a Go duration ("720h") or nanoseconds; zero means
	// unlimited.
	DataWindow timex.Duration `json:"dataWindow"`
}

// tokenView is the listing shape of a token: never the hash.
type tokenView struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Prefix            string     `json:"prefix"`
	Scopes            []string   `json:"scopes"`
	ExpiresAt         *time.Time `json:"expiresAt"`
	DataWindowSeconds int64      `json:"dataWindowSeconds"`
	RevokedAt         *time.Time `json:"revokedAt"`
	LastUsedAt        *time.Time `json:"lastUsedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func newTokenView(t *models.AccessToken) tokenView {
	return tokenView{
		ID:                t.ID,
		Name:              t.Name,
		Prefix:            t.Prefix,
		Scopes:            t.Scopes,
		ExpiresAt:         t.ExpiresAt,
		DataWindowSeconds: int64(t.DataWindow / time.Second),
		RevokedAt:         t.RevokedAt,
		LastUsedAt:        t.LastUsedAt,
		CreatedAt:         t.CreatedAt,
	}
}

func (s *Server) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, maxAdminBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.svc.Admin.Login(r.Context(), req.Password)
	if err != nil {
		s.logger.Warn(r.Context(), "admin login failed", "remote", r.RemoteAddr)
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := decodeJSON(w, r, maxAdminBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.svc.Tokens.Create(r.Context(), adminOwner(r.Context()), services.CreateTokenRequest{
		Name:       req.Name,
		Scopes:     req.Scopes,
		ExpiresAt:  req.ExpiresAt,
		DataWindow: req.DataWindow.Duration,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// The raw token is in this response only.
	writeJSON(w, http.StatusCreated, struct {
		tokenView
		Token string `json:"token"`
	}{newTokenView(created.Token), created.Raw})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.svc.Tokens.List(r.Context(), adminOwner(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, newTokenView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": views})
}

func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Tokens.Revoke(r.Context(), adminOwner(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
