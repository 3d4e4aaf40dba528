// Package server wires configuration, storage, object storage and the
// services together and runs the HTTP API, the gRPC health service and the
// in-process retention schedule until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/auth"
	"github.com/dmitrijs2005/ctxvault/internal/server/blobstore"
	"github.com/dmitrijs2005/ctxvault/internal/server/config"
	"github.com/dmitrijs2005/ctxvault/internal/server/httpapi"
	"github.com/dmitrijs2005/ctxvault/internal/server/metrics"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ctxvault/internal/server/retention"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/ctxvault/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	http      *httpapi.Server
	health    *gs.HealthServer
	scheduler *retention.Scheduler
}

// openDB is a seam so tests can avoid a real PostgreSQL.
var openDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := blobstore.NewS3Store(ctx, blobstore.Options{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.New(reg)

	var clock timex.Clock
	activity := services.NewActivityService(db, m, logger, clock)
	sweeps := services.NewRetentionService(db, m, blobs, c, activity, mt, logger, clock)
	scheduler := retention.NewScheduler(c.RetentionSchedule, sweeps, logger, clock)

	svc := httpapi.Services{
		Sync:        services.NewSyncService(db, m, activity, mt, logger, clock, c.SyncChunkSize),
		Read:        services.NewReadService(db, m, activity, logger, clock),
		Activity:    activity,
		Jobs:        services.NewJobService(db, m, activity, mt, logger, clock),
		Screenshots: services.NewScreenshotService(db, m, blobs, activity, logger, clock),
		Tokens:      services.NewTokenService(db, m, activity, logger, clock),
		Admin:       services.NewAdminService(c, logger),
		Retention:   scheduler,
	}
	validator := auth.NewValidator(m.Tokens(db), logger, clock)

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		http:      httpapi.NewServer(c, validator, svc, mt, logger),
		health:    gs.NewHealthServer(c.GRPCAddr, logger),
		scheduler: scheduler,
	}, nil
}

// Run blocks until SIGINT/SIGTERM/SIGQUIT or until a listener fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		app.logger.Error(ctx, err.Error())
		errOnce.Do(func() { firstErr = err })
		cancelFunc()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx, func() { app.health.SetServing(true) }); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
		app.health.SetServing(false)
	}()
	go func() {
		defer wg.Done()
		if err := app.health.Run(ctx); err != nil {
			fail(fmt.Errorf("grpc server: %w", err))
		}
	}()
	go func() {
		defer wg.Done()
		app.scheduler.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return firstErr
}
