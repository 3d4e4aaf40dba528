package httpapi

import (
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
	"github.com/go-chi/chi/v5"
)

// maxSyncBody bounds a sync request body.
const maxSyncBody = 16 << 20

type syncResponse struct {
	Success       bool                 `json:"success"`
	InsertedCount int                  `json:"insertedCount"`
	UpdatedCount  int                  `json:"updatedCount"`
	RejectedCount int                  `json:"rejectedCount"`
	SkippedCount  int                  `json:"skippedCount"`
	Rejected      []validate.Rejection `json:"rejected"`
}

func (s *Server) kind(w http.ResponseWriter, r *http.Request) (*schema.Kind, *auth.Identity, bool) {
	kind, ok := schema.Lookup(chi.URLParam(r, "kind"))
	if !ok {
		s.writeError(w, r, common.ErrorNotFound)
		return nil, nil, false
	}
	scope, err := auth.ParseScope(kind.Scope)
	if err != nil {
		s.writeError(w, r, err)
		return nil, nil, false
	}
	id, ok := s.identity(w, r, scope)
	return kind, id, ok
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := s.kind(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSyncBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, &validate.FieldError{Reason: "request body too large"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	req, err := validate.DecodeSyncRequest(kind, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.Sync.Sync(r.Context(), id, kind, req, r.Header.Get(common.DeviceIDHeaderName))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rejected := res.Rejected
	if rejected == nil {
		rejected = []validate.Rejection{}
	}
	writeJSON(w, http.StatusOK, syncResponse{
		Success:       true,
		InsertedCount: res.Inserted,
		UpdatedCount:  res.Updated,
		RejectedCount: len(res.Rejected),
		SkippedCount:  res.Skipped,
		Rejected:      rejected,
	})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := s.kind(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var names []string
	filters := map[string]string{}
	for _, f := range kind.Filters() {
		names = append(names, f.Name)
		if v := q.Get(f.Name); v != "" {
			filters[f.Name] = v
		}
	}
	page, ok := s.page(w, r, names...)
	if !ok {
		return
	}

	recs, err := s.svc.Read.List(r.Context(), id, kind, filters, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	childrenField := ""
	if kind.Child != nil {
		childrenField = kind.Child.ItemsField
	}
	docs := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, rec.Document(childrenField))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		kind.ItemsField: docs,
		"count":         len(docs),
		"limit":         page.Limit,
		"offset":        page.Offset,
	})
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r, auth.ScopeActivity)
	if !ok {
		return
	}
	page, ok := s.page(w, r)
	if !ok {
		return
	}

	entries, err := s.svc.Activity.List(r.Context(), id, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries, "count": len(entries)})
}

// page parses limit/offset and refuses any other query parameter except
// the extra names given.
func (s *Server) page(w http.ResponseWriter, r *http.Request, extra ...string) (services.Page, bool) {
	q := r.URL.Query()
	for name := range q {
		if name == "limit" || name == "offset" || slices.Contains(extra, name) {
			continue
		}
		s.writeError(w, r, &validate.FieldError{Field: name, Reason: "unknown query parameter"})
		return services.Page{}, false
	}
	page, err := services.ParsePage(q.Get("limit"), q.Get("offset"))
	if err != nil {
		s.writeError(w, r, err)
		return services.Page{}, false
	}
	return page, true
}
