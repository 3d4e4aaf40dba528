package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	h := newFixture().handler()
	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthenticate(t *testing.T) {
	f := newFixture()
	h := f.handler()

	tests := []struct {
		name   string
		token  string
		path   string
		status int
		error  string
	}{
		{"missing token", "", "/api/messages", http.StatusUnauthorized, "unauthorized"},
		{"unknown token", "nope", "/api/messages", http.StatusUnauthorized, "unauthorized"},
		{"store failure", brokenToken, "/api/messages", http.StatusInternalServerError, "internal error"},
		{"missing scope", messagesToken, "/api/notes", http.StatusForbidden, "forbidden"},
		{"unknown kind", allToken, "/api/bookmarks", http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.error, decode(t, rec)["error"])
		})
	}

	rec := do(t, h, http.MethodGet, "/api/messages", messagesToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	validations := f.metrics.TokenValidationsTotal
	assert.Equal(t, 1.0, testutil.ToFloat64(validations.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(validations.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(validations.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(validations.WithLabelValues("ok")))
}

func TestMetrics_LabelRoutesByPattern(t *testing.T) {
	f := newFixture()
	h := f.handler()

	do(t, h, http.MethodGet, "/api/messages", allToken, nil)
	do(t, h, http.MethodGet, "/api/notes", allToken, nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/api/{kind}",status="200"} 2`)
	assert.NotContains(t, body, `route="/api/messages"`)
}

func TestCORS_Preflight(t *testing.T) {
	h := newFixture().handler()
	rec := do(t, h, http.MethodOptions, "/api/messages", "", nil,
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "POST",
		"Access-Control-Request-Headers", "Authorization, X-Device-Id",
	)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodOptions, "/api/messages", "", nil,
		"Origin", "https://evil.example",
		"Access-Control-Request-Method", "POST",
	)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitByIP(t *testing.T) {
	f := newFixture()
	f.cfg.RateLimitPerMinute = 2
	h := f.handler()

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/healthz", "", nil).Code)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HTTPAddr = "127.0.0.1:0"
	srv := NewServer(cfg, fakeAuth{}, Services{}, nil, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, func() { close(ready) })
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HTTPAddr = "127.0.0.1:99999"
	srv := NewServer(cfg, fakeAuth{}, Services{}, nil, logging.Nop())

	assert.Error(t, srv.Run(context.Background(), nil))
}
