// Package httpapi is the JSON-over-HTTP transport: sync and read endpoints
// per record kind, screenshots, write jobs, the activity log, retention
// and token administration.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/config"
	"github.com/dmitrijs2005/ctxvault/internal/server/metrics"
	"github.com/dmitrijs2005/ctxvault/internal/server/models"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
)

const shutdownTimeout = 10 * time.Second

type Authenticator interface {
	Validate(ctx context.Context, raw string) (*auth.Identity, error)
}

type Syncer interface {
	Sync(ctx context.Context, id *auth.Identity, kind *schema.Kind, req *validate.SyncRequest, deviceID string) (*services.SyncResult, error)
}

type Reader interface {
	List(ctx context.Context, id *auth.Identity, kind *schema.Kind, filters map[string]string, page services.Page) ([]models.Record, error)
}

type ActivityLog interface {
	List(ctx context.Context, id *auth.Identity, page services.Page) ([]*models.ActivityEntry, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, id *auth.Identity, jobType string, payload json.RawMessage) (*models.WriteJob, error)
	ClaimNext(ctx context.Context, id *auth.Identity, deviceID string) (*models.WriteJob, bool, error)
	Complete(ctx context.Context, id *auth.Identity, jobID, deviceID string, success bool, errMsg string) (*models.WriteJob, error)
	List(ctx context.Context, id *auth.Identity, status string, page services.Page) ([]*models.WriteJob, error)
}

type Screenshots interface {
	Upload(ctx context.Context, id *auth.Identity, up *validate.ScreenshotUpload, deviceID string) (bool, error)
	List(ctx context.Context, id *auth.Identity, page services.Page) ([]services.ScreenshotView, error)
}

type TokenAdmin interface {
	Create(ctx context.Context, ownerID string, req services.CreateTokenRequest) (*services.CreatedToken, error)
	List(ctx context.Context, ownerID string) ([]*models.AccessToken, error)
	Revoke(ctx context.Context, ownerID, id string) error
}

type AdminSessions interface {
	Login(ctx context.Context, password string) (string, error)
	Owner(token string) (string, error)
}

// Sweeper runs one retention pass; the in-process scheduler guards it
// against overlapping runs.
type Sweeper interface {
	RunOnce(ctx context.Context) (map[string]services.SweepResult, error)
}

// Services groups what the handlers call into.
type Services struct {
	Sync        Syncer
	Read        Reader
	Activity    ActivityLog
	Jobs        JobQueue
	Screenshots Screenshots
	Tokens      TokenAdmin
	Admin       AdminSessions
	Retention   Sweeper
}

type Server struct {
	address string
	config  *config.Config
	auth    Authenticator
	svc     Services
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewServer(cfg *config.Config, a Authenticator, svc Services, mt *metrics.Metrics, l logging.Logger) *Server {
	return &Server{
		address: cfg.HTTPAddr,
		config:  cfg,
		auth:    a,
		svc:     svc,
		metrics: mt,
		logger:  l.With("module", "http_server"),
	}
}

// Run serves until ctx is done, then shuts down gracefully. ready, when
// not nil, is called once the listener is bound.
func (s *Server) Run(ctx context.Context, ready func()) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
	if ready != nil {
		ready()
	}

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
