// Package sweep evicts tracked posts that outlived their window
package sweep

import (
	"context"
	"time"

	"crossposter/internal/core/tracking"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/metrics"
	ptime "crossposter/internal/platform/time"
)

// Config holds the sweeper knobs
// Retention zero keeps Published posts until process exit
type Config struct {
	Interval     time.Duration
	ExpiryWindow time.Duration
	Retention    time.Duration
}

// Stats is the outcome of one pass
type Stats struct {
	Expired int
	Pruned  int
}

// Sweeper scans the registry on a fixed interval
type Sweeper struct {
	reg   *tracking.Registry
	cfg   Config
	now   ptime.Clock
	m     *metrics.Metrics
	log   *logger.Logger
	after func(Stats)
}

// Option customises a Sweeper
type Option func(*Sweeper)

// WithClock replaces the wall clock
func WithClock(c ptime.Clock) Option { return func(s *Sweeper) { s.now = c } }

// WithMetrics records every pass
func WithMetrics(m *metrics.Metrics) Option { return func(s *Sweeper) { s.m = m } }

// OnPass is called after each ticked pass
func OnPass(fn func(Stats)) Option { return func(s *Sweeper) { s.after = fn } }

// New returns a sweeper over reg
func New(reg *tracking.Registry, cfg Config, opts ...Option) (*Sweeper, error) {
	if reg == nil {
		return nil, perr.InvalidArgf("registry is required")
	}
	if cfg.Interval <= 0 {
		return nil, perr.WithField(perr.InvalidArgf("sweep interval must be positive"), "sweep_interval")
	}
	if cfg.ExpiryWindow <= 0 {
		return nil, perr.WithField(perr.InvalidArgf("expiry window must be positive"), "expiry_window")
	}
	if cfg.Retention < 0 {
		return nil, perr.WithField(perr.InvalidArgf("retention must not be negative"), "published_retention")
	}
	s := &Sweeper{reg: reg, cfg: cfg, now: ptime.System, log: logger.Named("sweeper")}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Run sweeps every interval until ctx is done
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()

	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("window", s.cfg.ExpiryWindow).
		Dur("retention", s.cfg.Retention).
		Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopped")
			return ctx.Err()
		case <-t.C:
			st := s.SweepOnce(s.now())
			if s.after != nil {
				s.after(st)
			}
		}
	}
}

// SweepOnce runs a single pass at now
// Stale Pending posts are expired and removed under their lock, so an approval
// racing the sweep either lands first or sees the post gone
func (s *Sweeper) SweepOnce(now time.Time) Stats {
	var st Stats
	for snap := range s.reg.All() {
		switch snap.State {
		case tracking.Pending, tracking.Expired:
			if snap.State == tracking.Pending && now.Sub(snap.CreatedAt) <= s.cfg.ExpiryWindow {
				continue
			}
			if s.reg.RemoveIf(snap.ID, func(p *tracking.Post) bool {
				switch p.State {
				case tracking.Expired:
					return true
				case tracking.Pending:
					if p.Age(now) > s.cfg.ExpiryWindow {
						p.State = tracking.Expired
						return true
					}
				}
				return false
			}) {
				st.Expired++
			}
		case tracking.Published:
			if s.cfg.Retention <= 0 || now.Sub(snap.PublishedAt) <= s.cfg.Retention {
				continue
			}
			if s.reg.RemoveIf(snap.ID, func(p *tracking.Post) bool {
				return p.State == tracking.Published && now.Sub(p.PublishedAt) > s.cfg.Retention
			}) {
				st.Pruned++
			}
		}
	}
	remaining := s.reg.Len()
	s.m.Swept(st.Expired, st.Pruned, remaining)
	if st.Expired > 0 || st.Pruned > 0 {
		s.log.Info().Int("expired", st.Expired).Int("pruned", st.Pruned).Int("tracked", remaining).Msg("sweep")
	} else {
		s.log.Debug().Int("tracked", remaining).Msg("sweep idle")
	}
	return st
}
