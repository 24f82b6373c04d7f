package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MrMouse2405/CSE362/internal/metrics"
)

// sweepTimeout bounds a single sweep.
const sweepTimeout = 30 * time.Second

// SessionSweeper periodically deletes expired sessions. Validate already
// removes expired sessions lazily; the sweeper reclaims those never
// presented again.
type SessionSweeper struct {
	sessions *SessionManager
	logger   *slog.Logger
	cron     *cron.Cron
	onSwept  func(n int64)
}

// NewSessionSweeper schedules sweeps using a standard cron expression or a
// descriptor such as "@every 1h". The sweeper is idle until Start.
func NewSessionSweeper(sessions *SessionManager, schedule string, logger *slog.Logger) (*SessionSweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &SessionSweeper{
		sessions: sessions,
		logger:   logger,
		cron:     cron.New(),
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("parsing sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// OnSwept registers a callback run after each successful scheduled sweep.
// Call it before Start.
func (s *SessionSweeper) OnSwept(fn func(n int64)) {
	s.onSwept = fn
}

// Start begins running scheduled sweeps in the background.
func (s *SessionSweeper) Start() {
	s.cron.Start()
	s.logger.Info("session sweeper started", "next", s.cron.Entries()[0].Next)
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to end.
func (s *SessionSweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Sweep deletes expired sessions once.
func (s *SessionSweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	metrics.RecordSwept(n)
	return n, nil
}

func (s *SessionSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions swept", "count", n)
	}
	if s.onSwept != nil {
		s.onSwept(n)
	}
}
