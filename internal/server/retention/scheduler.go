// Package retention runs the retention sweep on a cron schedule inside the
// server process. The HTTP cron endpoint stays available for external
// schedulers; both paths share one running guard.
package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dmitrijs2005/ctxvault/internal/logging"
	"github.com/dmitrijs2005/ctxvault/internal/server/services"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
)

// ErrAlreadyRunning is returned by RunOnce when a sweep is in progress.
var ErrAlreadyRunning = errors.New("retention sweep already running")

// retryDelay is how long the loop waits after a bad next-tick computation.
const retryDelay = 30 * time.Second

// Sweeper runs one retention pass over every target.
type Sweeper interface {
	SweepAll(ctx context.Context) (map[string]services.SweepResult, error)
}

type Scheduler struct {
	expr    string
	sweeper Sweeper
	log     logging.Logger
	clock   timex.Clock
	after   func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
}

func NewScheduler(expr string, sweeper Sweeper, log logging.Logger, clock timex.Clock) *Scheduler {
	return &Scheduler{
		expr:    expr,
		sweeper: sweeper,
		log:     log.With("module", "retention"),
		clock:   clock,
		after:   time.After,
	}
}

// Run blocks until ctx is done, sweeping at every tick of the schedule.
// An empty schedule returns immediately.
func (s *Scheduler) Run(ctx context.Context) {
	if s.expr == "" {
		s.log.Info(ctx, "retention schedule disabled")
		return
	}
	s.log.Info(ctx, "retention schedule enabled", "cron", s.expr)

	for {
		now := s.clock.Now()
		next, err := gronx.NextTickAfter(s.expr, now, false)
		wait := next.Sub(now)
		if err != nil {
			s.log.Error(ctx, "retention next tick failed", "cron", s.expr, "error", err)
			wait = retryDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
		}
		if err != nil {
			continue
		}

		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			s.log.Error(ctx, "retention sweep failed", "error", err)
		}
	}
}

// RunOnce sweeps now unless another sweep is already in flight.
func (s *Scheduler) RunOnce(ctx context.Context) (map[string]services.SweepResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return s.sweeper.SweepAll(ctx)
}
