// Package service contains the crosspost workflows
package service

import (
	"context"
	"time"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/core/gate"
	"crossposter/internal/core/sweep"
	"crossposter/internal/core/tagtext"
	"crossposter/internal/core/tracking"
	"crossposter/internal/modkit"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/metrics"
	"crossposter/internal/services/crosspost/domain"
	"crossposter/internal/services/crosspost/repo"
)

// Service defines the crosspost service contract
type Service interface {
	domain.IngestPort
	domain.QueryPort
	domain.WorkerPort
}

// Config carries the engine constants
type Config struct {
	Threshold     int
	ExpiryWindow  time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
	Tag           string
	ReasonMax     int
	Concurrent    bool
}

// Collaborators are the outbound adapters the engine talks to
// Resolver, Notifier and Ledger may be nil
type Collaborators struct {
	Publishers []dispatch.Publisher
	Resolver   dispatch.MediaResolver
	Notifier   dispatch.Notifier
	Ledger     domain.LedgerPort
}

// Svc implements the crosspost service
type Svc struct {
	reg     *tracking.Registry
	gate    *gate.Gate
	sweeper *sweep.Sweeper
	disp    *dispatch.Dispatcher
	tag     *tagtext.Matcher
	ledger  domain.LedgerPort
	cfg     Config
	now     func() time.Time
	m       *metrics.Metrics
	log     logger.Logger
}

var _ Service = (*Svc)(nil)

// New builds the registry and every engine component over it
func New(deps modkit.Deps, cfg Config, c Collaborators) (*Svc, error) {
	tag, err := tagtext.New(cfg.Tag)
	if err != nil {
		return nil, err
	}
	reg := tracking.NewRegistry()

	g, err := gate.New(reg, gate.Config{Threshold: cfg.Threshold, ExpiryWindow: cfg.ExpiryWindow},
		gate.WithMetrics(deps.Metrics))
	if err != nil {
		return nil, err
	}
	sw, err := sweep.New(reg, sweep.Config{Interval: cfg.SweepInterval, ExpiryWindow: cfg.ExpiryWindow, Retention: cfg.Retention},
		sweep.WithClock(deps.Now), sweep.WithMetrics(deps.Metrics))
	if err != nil {
		return nil, err
	}

	ledger := c.Ledger
	if ledger == nil {
		ledger = repo.Noop{}
	}
	opts := []dispatch.Option{
		dispatch.WithRecorder(ledger),
		dispatch.WithReasonMax(cfg.ReasonMax),
		dispatch.Sequential(!cfg.Concurrent),
		dispatch.WithMetrics(deps.Metrics),
		dispatch.WithClock(deps.Now),
	}
	if c.Resolver != nil {
		opts = append(opts, dispatch.WithResolver(c.Resolver))
	}
	if c.Notifier != nil {
		opts = append(opts, dispatch.WithNotifier(c.Notifier))
	}
	d, err := dispatch.New(c.Publishers, opts...)
	if err != nil {
		return nil, err
	}

	return &Svc{
		reg:     reg,
		gate:    g,
		sweeper: sw,
		disp:    d,
		tag:     tag,
		ledger:  ledger,
		cfg:     cfg,
		now:     deps.Now,
		m:       deps.Metrics,
		log:     *logger.Named("crosspost"),
	}, nil
}

// Tag returns the marker that makes a message a candidate
func (s *Svc) Tag() *tagtext.Matcher { return s.tag }

// Destinations lists enabled publishers in report order
func (s *Svc) Destinations() []string { return s.disp.Destinations() }

// Run drives the expiry sweeper until ctx is done
func (s *Svc) Run(ctx context.Context) error {
	return s.sweeper.Run(ctx)
}

// Sweep runs one sweeper pass now
func (s *Svc) Sweep() sweep.Stats { return s.sweeper.SweepOnce(s.now()) }
