// Package gate decides when a tracked post has enough approvals to publish
package gate

import (
	"errors"
	"time"

	"crossposter/internal/core/tracking"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/metrics"
)

// Kind is the closed set of gate outcomes
type Kind uint8

// Gate outcomes
const (
	UnknownPrompt Kind = iota
	AlreadyResolved
	DuplicateApproval
	StillPending
	ExpiredAtThreshold
	ReadyToPublish
)

func (k Kind) String() string {
	switch k {
	case UnknownPrompt:
		return "unknown_prompt"
	case AlreadyResolved:
		return "already_resolved"
	case DuplicateApproval:
		return "duplicate_approval"
	case StillPending:
		return "still_pending"
	case ExpiredAtThreshold:
		return "expired_at_threshold"
	case ReadyToPublish:
		return "ready_to_publish"
	}
	return "unknown"
}

// Result is what one approval produced
// Remaining is set for StillPending; Snapshot for ReadyToPublish
type Result struct {
	Kind      Kind
	PostID    string
	Remaining int
	Snapshot  tracking.Snapshot
}

// Config holds the gate constants
type Config struct {
	Threshold    int
	ExpiryWindow time.Duration
}

// Validate rejects a threshold below one or a non positive window
func (c Config) Validate() error {
	if c.Threshold < 1 {
		return perr.WithField(perr.InvalidArgf("threshold must be at least 1, got %d", c.Threshold), "threshold")
	}
	if c.ExpiryWindow <= 0 {
		return perr.WithField(perr.InvalidArgf("expiry window must be positive, got %s", c.ExpiryWindow), "expiry_window")
	}
	return nil
}

// Gate applies approvals to the registry
type Gate struct {
	reg *tracking.Registry
	cfg Config
	m   *metrics.Metrics
	log *logger.Logger
}

// Option customises a Gate
type Option func(*Gate)

// WithMetrics counts every result
func WithMetrics(m *metrics.Metrics) Option { return func(g *Gate) { g.m = m } }

// New returns a gate over reg
func New(reg *tracking.Registry, cfg Config, opts ...Option) (*Gate, error) {
	if reg == nil {
		return nil, perr.InvalidArgf("registry is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Gate{reg: reg, cfg: cfg, log: logger.Named("gate")}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Config returns the constants the gate was built with
func (g *Gate) Config() Config { return g.cfg }

// Approve records approver against the post behind promptID
// Everything after the prompt lookup runs under the post lock, so at most one
// caller per post ever gets ReadyToPublish
func (g *Gate) Approve(promptID, approver string, now time.Time) Result {
	res := g.approve(promptID, approver, now)
	g.m.Approval(res.Kind.String())
	g.log.Debug().
		Str("prompt_id", promptID).
		Str("post_id", res.PostID).
		Str("result", res.Kind.String()).
		Int("remaining", res.Remaining).
		Msg("approval")
	return res
}

func (g *Gate) approve(promptID, approver string, now time.Time) Result {
	id, err := g.reg.ResolvePrompt(promptID)
	if err != nil {
		return Result{Kind: UnknownPrompt}
	}
	res := Result{PostID: id}
	err = g.reg.Update(id, func(p *tracking.Post) error {
		if p.State != tracking.Pending {
			res.Kind = AlreadyResolved
			return nil
		}
		if !p.Approve(approver) {
			res.Kind = DuplicateApproval
			return nil
		}
		if remaining := max(0, g.cfg.Threshold-p.Approvals()); remaining > 0 {
			res.Kind, res.Remaining = StillPending, remaining
			return nil
		}
		if p.Age(now) > g.cfg.ExpiryWindow {
			p.State = tracking.Expired
			res.Kind = ExpiredAtThreshold
			return nil
		}
		p.State = tracking.Published
		p.PublishedAt = now
		res.Kind = ReadyToPublish
		res.Snapshot = p.Snapshot()
		return nil
	})
	if err != nil {
		if !errors.Is(err, tracking.ErrNotFound) {
			g.log.Warn().Err(err).Str("post_id", id).Msg("approve update failed")
		}
		return Result{Kind: UnknownPrompt, PostID: id}
	}
	return res
}
