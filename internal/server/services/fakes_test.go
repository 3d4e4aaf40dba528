package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/cryptox"
	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/activity"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/jobs"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/screenshots"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

var codec = func() *cryptox.Codec {
	c, err := cryptox.NewCodec("test-pass")
	if err != nil {
		panic(err)
	}
	return c
}()

func enc(s string) string { return codec.EncryptString(s) }

func identity(scopes ...auth.Scope) *auth.Identity {
	return &auth.Identity{
		TokenID: "11111111-1111-1111-1111-111111111111",
		OwnerID: "owner",
		Name:    "laptop",
		Prefix:  "ctx_abcdef01",
		Scopes:  auth.NewScopeSet(scopes...),
	}
}

// validRecords runs items through the validator and fails on rejections.
func validRecords(t *testing.T, kind *schema.Kind, items ...map[string]any) []models.Record {
	t.Helper()
	res := validate.Batch(kind, rawItems(t, items...))
	require.Empty(t, res.Rejected)
	return res.Valid
}

func rawItems(t *testing.T, items ...map[string]any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(items))
	for i, it := range items {
		b, err := json.Marshal(it)
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

func message(guid string, isRead bool) map[string]any {
	return map[string]any{
		"guid":   guid,
		"text":   enc("hello " + guid),
		"date":   "2026-03-01T10:00:00Z",
		"isRead": isRead,
	}
}

// -------- tx runner --------

type fakeTx struct {
	calls int
	err   error
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(ctx, nil)
}

// -------- records --------

type memRow struct {
	rec     models.Record
	writeID string
}

// memRecords mimics the conflict rules of the SQL reconciler: natural keys
// are unique, inserts keep the statement's write id, updates touch only
// mutable fields of rows whose stored timestamp is inside the window and
// whose tracked values differ.
type memRecords struct {
	records.Repository

	mu        sync.Mutex
	rows      map[string]*memRow
	children  map[string]models.Record
	writeIDs  []string
	stmts     int
	failAfter int // fail once more than failAfter statements ran; 0 never
	listQuery records.Query
}

func newMemRecords() *memRecords {
	return &memRecords{rows: map[string]*memRow{}, children: map[string]models.Record{}}
}

func (m *memRecords) stmt(w records.Write) error {
	m.stmts++
	m.writeIDs = append(m.writeIDs, w.WriteID)
	if m.failAfter > 0 && m.stmts > m.failAfter {
		return errors.New("connection reset")
	}
	return nil
}

func (m *memRecords) InsertNew(_ context.Context, kind *schema.Kind, w records.Write, recs []models.Record) ([]records.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.stmt(w); err != nil {
		return nil, err
	}
	var out []records.Outcome
	for _, r := range recs {
		if _, ok := m.rows[r.Key]; ok {
			continue
		}
		m.insert(r, w)
		out = append(out, records.Outcome{Key: r.Key, Inserted: true})
	}
	return out, nil
}

func (m *memRecords) insert(r models.Record, w records.Write) {
	r.DeviceID = w.DeviceID
	r.SyncTime = w.SyncTime
	r.CreatedAt, r.UpdatedAt = w.Now, w.Now
	r.Children = nil
	m.rows[r.Key] = &memRow{rec: r, writeID: w.WriteID}
}

func (m *memRecords) Upsert(ctx context.Context, kind *schema.Kind, w records.Write, recs []models.Record) ([]records.Outcome, error) {
	if kind.InsertOnly() {
		return m.InsertNew(ctx, kind, w, recs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.stmt(w); err != nil {
		return nil, err
	}
	var out []records.Outcome
	for _, r := range recs {
		row, ok := m.rows[r.Key]
		if !ok {
			m.insert(r, w)
			out = append(out, records.Outcome{Key: r.Key, Inserted: true})
			continue
		}
		if row.rec.Timestamp.Before(w.MutableCutoff) {
			continue
		}
		changed := false
		for _, f := range kind.MutableFields {
			if !sameValue(row.rec.Values[f], r.Values[f]) {
				changed = true
			}
		}
		if !changed {
			continue
		}
		for _, f := range kind.MutableFields {
			row.rec.Values[f] = r.Values[f]
		}
		if ts, ok := row.rec.Values[kind.TimestampField].(time.Time); ok {
			row.rec.Timestamp = ts
		}
		row.rec.DeviceID = w.DeviceID
		row.rec.SyncTime = w.SyncTime
		row.rec.UpdatedAt = w.Now
		out = append(out, records.Outcome{Key: r.Key, Inserted: false})
	}
	return out, nil
}

func sameValue(a, b any) bool {
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA || okB {
		return okA && okB && ta.Equal(tb)
	}
	return a == b
}

func (m *memRecords) InsertChildren(_ context.Context, kind *schema.Kind, _ records.Write, parents []models.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range parents {
		for _, c := range p.Children {
			if _, ok := m.children[c.Key]; ok {
				continue
			}
			c.Values[kind.ParentColumn] = p.Key
			m.children[c.Key] = c
			n++
		}
	}
	return n, nil
}

func (m *memRecords) List(_ context.Context, kind *schema.Kind, q records.Query) ([]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listQuery = q
	var out []models.Record
	for _, row := range m.rows {
		if q.Since != nil && row.rec.Timestamp.Before(*q.Since) {
			continue
		}
		match := true
		for name, v := range q.Filters {
			if row.rec.Values[name] != v {
				match = false
			}
		}
		if match {
			out = append(out, row.rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memRecords) ListChildren(_ context.Context, kind *schema.Kind, _ string, keys []string) (map[string][]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]models.Record{}
	for _, c := range m.children {
		parent, _ := c.Values[kind.ParentColumn].(string)
		out[parent] = append(out[parent], c)
	}
	return out, nil
}

func (m *memRecords) get(key string) models.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key].rec
}

// -------- activity --------

type memActivity struct {
	activity.Repository
	mu      sync.Mutex
	entries []models.ActivityEntry
	err     error
	since   *time.Time
	deleted int64
}

func (m *memActivity) Append(_ context.Context, e *models.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memActivity) List(_ context.Context, _ string, since *time.Time, _, _ int) ([]*models.ActivityEntry, error) {
	m.since = since
	out := make([]*models.ActivityEntry, 0, len(m.entries))
	for i := range m.entries {
		out = append(out, &m.entries[i])
	}
	return out, nil
}

func (m *memActivity) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return m.deleted, nil
}

func (m *memActivity) actions() []models.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Action
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// -------- jobs --------

type memJobs struct {
	jobs.Repository
	mu   sync.Mutex
	jobs []*models.WriteJob
}

func (m *memJobs) Create(_ context.Context, j *models.WriteJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs = append(m.jobs, &cp)
	return nil
}

func (m *memJobs) ClaimNext(_ context.Context, owner, device string, at time.Time) (*models.WriteJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.OwnerID == owner && j.Status == models.JobPending {
			j.Status = models.JobClaimed
			j.ClaimedBy = &device
			j.ClaimedAt = &at
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memJobs) HasPending(_ context.Context, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.OwnerID == owner && j.Status == models.JobPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memJobs) Finish(_ context.Context, owner, id, device string, status models.JobStatus, errMsg *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.OwnerID == owner && j.ID == id && j.Status == models.JobClaimed && j.ClaimedBy != nil && *j.ClaimedBy == device {
			j.Status = status
			j.Error = errMsg
			j.CompletedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memJobs) Get(_ context.Context, owner, id string) (*models.WriteJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.OwnerID == owner && j.ID == id {
			cp := *j
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memJobs) List(_ context.Context, owner string, status models.JobStatus, since *time.Time, _, _ int) ([]*models.WriteJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WriteJob
	for _, j := range m.jobs {
		if since != nil && j.CreatedAt.Before(*since) {
			continue
		}
		if j.OwnerID == owner && (status == "" || j.Status == status) {
			out = append(out, j)
		}
	}
	return out, nil
}

// -------- manager --------

type fakeManager struct {
	repomanager.RepositoryManager
	records     *memRecords
	activity    *memActivity
	jobs        *memJobs
	tokens      tokens.Repository
	screenshots screenshots.Repository
}

func newFakeManager() *fakeManager {
	return &fakeManager{records: newMemRecords(), activity: &memActivity{}, jobs: &memJobs{}}
}

func (m *fakeManager) Records(dbx.DBTX) records.Repository { return m.records }
func (m *fakeManager) Activity(dbx.DBTX) activity.Repository { return m.activity }
func (m *fakeManager) Jobs(dbx.DBTX) jobs.Repository { return m.jobs }
func (m *fakeManager) Tokens(dbx.DBTX) tokens.Repository { return m.tokens }
func (m *fakeManager) Screenshots(dbx.DBTX) screenshots.Repository { return m.screenshots }

func newActivity(m *fakeManager) *ActivityService {
	return NewActivityService(nil, m, logging.Nop(), timex.Fixed(testNow))
}
