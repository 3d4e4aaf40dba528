package httpapi

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/server/retention"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminSession(t *testing.T) {
	h := newFixture().handler()

	rec := do(t, h, http.MethodPost, "/api/admin/session", "", map[string]string{"password": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminSession, decode(t, rec)["token"])

	rec = do(t, h, http.MethodPost, "/api/admin/session", "", map[string]string{"password": "guess"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]any{"error": "unauthorized"}, decode(t, rec))
}

func TestAdminTokens_RequireSession(t *testing.T) {
	h := newFixture().handler()
	for _, token := range []string{"", allToken, "forged"} {
		assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/admin/tokens", token, nil).Code)
	}
}

func TestAdminTokens_Create(t *testing.T) {
	f := newFixture()
	h := f.handler()

	rec := do(t, h, http.MethodPost, "/api/admin/tokens", adminSession,
		`{"name":"laptop","scopes":["notes","messages"],"dataWindow":"720h"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "owner", f.tokens.owner)
	assert.Equal(t, []string{"notes", "messages"}, f.tokens.req.Scopes)
	assert.Equal(t, 720*time.Hour, f.tokens.req.DataWindow)

	got := decode(t, rec)
	assert.Regexp(t, `^ctx_[0-9a-f]{64}$`, got["token"])
	assert.Equal(t, "ctx_0123abcd", got["prefix"])
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestAdminTokens_CreateValidation(t *testing.T) {
	f := newFixture()
	f.tokens.err = &validate.FieldError{Field: "scopes", Reason: "at least one scope is required"}
	rec := do(t, f.handler(), http.MethodPost, "/api/admin/tokens", adminSession, `{"name":"laptop"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "scopes", decode(t, rec)["field"])
}

func TestAdminTokens_ListAndRevoke(t *testing.T) {
	f := newFixture()
	h := f.handler()

	rec := do(t, h, http.MethodGet, "/api/admin/tokens", adminSession, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
	tok := decode(t, rec)["tokens"].([]any)[0].(map[string]any)
	assert.Equal(t, "ctx_abcdef01", tok["prefix"])
	assert.Equal(t, 3600.0, tok["dataWindowSeconds"])

	rec = do(t, h, http.MethodDelete, "/api/admin/tokens/tok-1", adminSession, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tok-1", f.tokens.revoked)
}

func TestRetentionEndpoint(t *testing.T) {
	f := newFixture()
	f.retention.res = map[string]services.SweepResult{
		"activity": {DeletedCount: 4, RetentionHours: 2160},
		"notes":    {Disabled: true},
	}
	h := f.handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/cron/retention", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/cron/retention", "wrong", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/cron/retention", allToken, nil).Code)

	rec := do(t, h, http.MethodGet, "/api/cron/retention", "cron-secret", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode(t, rec)
	assert.Equal(t, true, got["success"])
	results := got["results"].(map[string]any)
	assert.Equal(t, "disabled", results["notes"])
	assert.Equal(t, 4.0, results["activity"].(map[string]any)["deletedCount"])
}

func TestRetentionEndpoint_Failures(t *testing.T) {
	f := newFixture()
	h := f.handler()

	f.retention.err = retention.ErrAlreadyRunning
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodGet, "/api/cron/retention", "cron-secret", nil).Code)

	f.retention.res = map[string]services.SweepResult{"activity": {DeletedCount: 1}, "notes": {Failed: true}}
	f.retention.err = errors.New("notes: statement timeout")
	rec := do(t, h, http.MethodGet, "/api/cron/retention", "cron-secret", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	results := body["results"].(map[string]any)
	assert.Equal(t, map[string]any{"error": "sweep failed"}, results["notes"])
	assert.NotContains(t, rec.Body.String(), "statement timeout")
}

func TestRetentionEndpoint_NoSecretConfigured(t *testing.T) {
	f := newFixture()
	f.cfg.CronSecret = ""
	rec := do(t, f.handler(), http.MethodGet, "/api/cron/retention", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
