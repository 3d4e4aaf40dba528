package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe logs every request and feeds the HTTP metrics. Routes are
// labelled by their pattern so path parameters do not explode cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sr, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, route, sr.status, elapsed)
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"route", route,
			"status", sr.status,
			"duration", elapsed.String(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// authenticate resolves the bearer token to an identity. Which check
// failed is logged but never returned to the caller.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			s.metrics.TokenValidation("missing")
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		id, err := s.auth.Validate(r.Context(), raw)
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) {
				s.metrics.TokenValidation("rejected")
				s.logger.Debug(r.Context(), "token rejected", "prefix", auth.DisplayPrefix(raw), "error", err)
				s.writeError(w, r, common.ErrorUnauthorized)
				return
			}
			s.metrics.TokenValidation("error")
			s.writeError(w, r, err)
			return
		}

		s.metrics.TokenValidation("ok")
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// identity returns the caller and checks that it holds scope. On failure
// the response has already been written.
func (s *Server) identity(w http.ResponseWriter, r *http.Request, scope auth.Scope) (*auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorUnauthorized)
		return nil, false
	}
	if !auth.HasScope(id, scope) {
		s.writeError(w, r, common.ErrForbidden)
		return nil, false
	}
	return id, true
}

type adminOwnerKey struct{}

// requireAdmin accepts a session token issued by POST /api/admin/session.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}
		owner, err := s.svc.Admin.Owner(token)
		if err != nil {
			s.logger.Debug(r.Context(), "admin session rejected", "error", err)
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminOwnerKey{}, owner)))
	})
}

func adminOwner(ctx context.Context) string {
	owner, _ := ctx.Value(adminOwnerKey{}).(string)
	return owner
}
