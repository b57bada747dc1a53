// Package sweeper runs the background lifecycle pass: unopened blind boxes
// past their validity window are marked expired, and lottery activities whose
// end time has passed are closed so they stop accepting draws.
//
// The sweeps are bulk conditional updates, so a pass that races a concurrent
// open or draw loses cleanly: the row's status check fails and the row is
// left alone.
package sweeper

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lunamall/lunamall/internal/infra/sqlite"
)

// Config controls sweep timing.
type Config struct {
	Interval time.Duration // time between passes (default: 1m)
	Timeout  time.Duration // per-pass deadline (default: 30s)
}

// DefaultConfig returns safe sweeper defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Timeout:  30 * time.Second,
	}
}

// Sweeper expires boxes and closes activities on a fixed interval.
type Sweeper struct {
	mu      sync.RWMutex
	config  Config
	db      *sqlite.DB
	clock   func() time.Time
	passes  int64
	expired int64
	closed  int64
}

// New creates a sweeper. Zero config fields fall back to defaults.
func New(cfg Config, db *sqlite.DB) *Sweeper {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Sweeper{
		config: cfg,
		db:     db,
		clock:  time.Now,
	}
}

// WithClock substitutes the time source. Test hook.
func (s *Sweeper) WithClock(clock func() time.Time) *Sweeper {
	s.clock = clock
	return s
}

// Run sweeps on the configured interval until ctx is cancelled. One pass is
// run immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns how many boxes were expired and how
// many activities were closed.
func (s *Sweeper) Sweep(ctx context.Context) (expired, closed int64, err error) {
	return s.pass(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, closed, err := s.pass(ctx)
	if err != nil {
		log.Printf("[sweeper] pass failed: %v", err)
		return
	}
	if expired > 0 || closed > 0 {
		log.Printf("[sweeper] expired %d box(es), closed %d activity(ies)", expired, closed)
	}
}

func (s *Sweeper) pass(ctx context.Context) (int64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	now := s.clock()

	expired, err := s.db.ExpireBlindBoxes(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	closed, err := s.db.EndElapsedActivities(ctx, now)
	if err != nil {
		return expired, 0, err
	}

	s.mu.Lock()
	s.passes++
	s.expired += expired
	s.closed += closed
	s.mu.Unlock()
	return expired, closed, nil
}

// Stats reports lifetime sweep counters.
type Stats struct {
	Passes           int64 `json:"passes"`
	BoxesExpired     int64 `json:"boxes_expired"`
	ActivitiesClosed int64 `json:"activities_closed"`
}

// Stats returns current sweeper statistics.
func (s *Sweeper) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Passes:           s.passes,
		BoxesExpired:     s.expired,
		ActivitiesClosed: s.closed,
	}
}
