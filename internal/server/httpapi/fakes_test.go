package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/config"
	"github.com/dmitrijs2005/ctxvault/internal/server/metrics"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

const (
	allToken      = "all-scopes"
	messagesToken = "messages-only"
	brokenToken   = "store-down"
	adminSession  = "admin-session"
)

type fakeAuth struct{}

func (fakeAuth) Validate(_ context.Context, raw string) (*auth.Identity, error) {
	id := &auth.Identity{TokenID: "tok-1", OwnerID: "owner", Prefix: "ctx_abcdef01"}
	switch raw {
	case allToken:
		for _, name := range auth.AllScopes() {
			id.Scopes = id.Scopes.Add(auth.MustParseScope(name))
		}
		return id, nil
	case messagesToken:
		id.Scopes = auth.NewScopeSet(auth.ScopeMessages)
		return id, nil
	case brokenToken:
		return nil, io.ErrUnexpectedEOF
	}
	return nil, common.ErrInvalidToken
}

type fakeSync struct {
	kind     *schema.Kind
	req      *validate.SyncRequest
	deviceID string
	res      *services.SyncResult
	err      error
}

func (f *fakeSync) Sync(_ context.Context, _ *auth.Identity, kind *schema.Kind, req *validate.SyncRequest, deviceID string) (*services.SyncResult, error) {
	f.kind, f.req, f.deviceID = kind, req, deviceID
	if f.res == nil {
		f.res = &services.SyncResult{}
	}
	return f.res, f.err
}

type fakeRead struct {
	filters map[string]string
	page    services.Page
	recs    []models.Record
}

func (f *fakeRead) List(_ context.Context, _ *auth.Identity, _ *schema.Kind, filters map[string]string, page services.Page) ([]models.Record, error) {
	f.filters, f.page = filters, page
	return f.recs, nil
}

type fakeActivity struct{ entries []*models.ActivityEntry }

func (f *fakeActivity) List(context.Context, *auth.Identity, services.Page) ([]*models.ActivityEntry, error) {
	return f.entries, nil
}

type fakeJobs struct {
	job      *models.WriteJob
	hasMore  bool
	err      error
	deviceID string
	jobID    string
	success  bool
	errMsg   string
	status   string
	payload  json.RawMessage
	enqueued string
}

func (f *fakeJobs) Enqueue(_ context.Context, _ *auth.Identity, jobType string, payload json.RawMessage) (*models.WriteJob, error) {
	f.enqueued, f.payload = jobType, payload
	return &models.WriteJob{ID: "job-1", Type: jobType, Payload: payload, Status: models.JobPending}, f.err
}

func (f *fakeJobs) ClaimNext(_ context.Context, _ *auth.Identity, deviceID string) (*models.WriteJob, bool, error) {
	f.deviceID = deviceID
	return f.job, f.hasMore, f.err
}

func (f *fakeJobs) Complete(_ context.Context, _ *auth.Identity, jobID, deviceID string, success bool, errMsg string) (*models.WriteJob, error) {
	f.jobID, f.deviceID, f.success, f.errMsg = jobID, deviceID, success, errMsg
	return f.job, f.err
}

func (f *fakeJobs) List(_ context.Context, _ *auth.Identity, status string, _ services.Page) ([]*models.WriteJob, error) {
	f.status = status
	return nil, f.err
}

type fakeScreenshots struct {
	up       *validate.ScreenshotUpload
	deviceID string
	inserted bool
	views    []services.ScreenshotView
}

func (f *fakeScreenshots) Upload(_ context.Context, _ *auth.Identity, up *validate.ScreenshotUpload, deviceID string) (bool, error) {
	f.up, f.deviceID = up, deviceID
	return f.inserted, nil
}

func (f *fakeScreenshots) List(context.Context, *auth.Identity, services.Page) ([]services.ScreenshotView, error) {
	return f.views, nil
}

type fakeTokens struct {
	owner   string
	req     services.CreateTokenRequest
	revoked string
	err     error
}

func (f *fakeTokens) Create(_ context.Context, ownerID string, req services.CreateTokenRequest) (*services.CreatedToken, error) {
	f.owner, f.req = ownerID, req
	if f.err != nil {
		return nil, f.err
	}
	return &services.CreatedToken{
		Token: &models.AccessToken{ID: "tok-2", Name: req.Name, Prefix: "ctx_0123abcd", TokenHash: "secret-hash", Scopes: req.Scopes, CreatedAt: testNow},
		Raw:   "ctx_" + strings.Repeat("ab", 32),
	}, nil
}

func (f *fakeTokens) List(_ context.Context, ownerID string) ([]*models.AccessToken, error) {
	f.owner = ownerID
	return []*models.AccessToken{{ID: "tok-1", Name: "laptop", Prefix: "ctx_abcdef01", TokenHash: "secret-hash", Scopes: []string{"notes"}, DataWindow: time.Hour}}, nil
}

func (f *fakeTokens) Revoke(_ context.Context, ownerID, id string) error {
	f.owner, f.revoked = ownerID, id
	return f.err
}

type fakeAdmin struct{}

func (fakeAdmin) Login(_ context.Context, password string) (string, error) {
	if password != "hunter2" {
		return "", common.ErrorUnauthorized
	}
	return adminSession, nil
}

func (fakeAdmin) Owner(token string) (string, error) {
	if token != adminSession {
		return "", common.ErrInvalidToken
	}
	return "owner", nil
}

type fakeSweeper struct {
	res map[string]services.SweepResult
	err error
}

func (f *fakeSweeper) RunOnce(context.Context) (map[string]services.SweepResult, error) {
	return f.res, f.err
}

type fixture struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	sync      *fakeSync
	read      *fakeRead
	activity  *fakeActivity
	jobs      *fakeJobs
	shots     *fakeScreenshots
	tokens    *fakeTokens
	retention *fakeSweeper
}

func newFixture() *fixture {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.CronSecret = "cron-secret"
	return &fixture{
		cfg:       cfg,
		metrics:   metrics.New(prometheus.NewRegistry()),
		sync:      &fakeSync{},
		read:      &fakeRead{},
		activity:  &fakeActivity{},
		jobs:      &fakeJobs{},
		shots:     &fakeScreenshots{},
		tokens:    &fakeTokens{},
		retention: &fakeSweeper{},
	}
}

func (f *fixture) handler() http.Handler {
	svc := Services{
		Sync:        f.sync,
		Read:        f.read,
		Activity:    f.activity,
		Jobs:        f.jobs,
		Screenshots: f.shots,
		Tokens:      f.tokens,
		Admin:       fakeAdmin{},
		Retention:   f.retention,
	}
	return NewServer(f.cfg, fakeAuth{}, svc, f.metrics, logging.Nop()).Handler()
}

// do sends one request through h. token, when set, goes into the
// Authorization header; body is JSON-encoded unless it is a string.
func do(t *testing.T, h http.Handler, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
