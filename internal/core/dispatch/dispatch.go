package dispatch

import (
	"context"
	"fmt"
	"time"

	"crossposter/internal/core/tracking"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/metrics"
	pstrings "crossposter/internal/platform/strings"
	ptime "crossposter/internal/platform/time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultReasonMax bounds failure reasons in runes
const DefaultReasonMax = 100

// afterTimeout bounds the final notify and record, which run even if the caller's ctx is gone
const afterTimeout = 15 * time.Second

// Dispatcher runs every publisher for one approved post
type Dispatcher struct {
	pubs       []Publisher
	resolver   MediaResolver
	notifier   Notifier
	recorder   Recorder
	reasonMax  int
	sequential bool
	now        ptime.Clock
	newID      func() string
	m          *metrics.Metrics
	log        *logger.Logger
}

// Option customises a Dispatcher
type Option func(*Dispatcher)

// WithResolver sets the media resolver; without one media is dropped
func WithResolver(r MediaResolver) Option { return func(d *Dispatcher) { d.resolver = r } }

// WithNotifier sets where start and report messages go
func WithNotifier(n Notifier) Option { return func(d *Dispatcher) { d.notifier = n } }

// WithRecorder keeps finished reports
func WithRecorder(r Recorder) Option { return func(d *Dispatcher) { d.recorder = r } }

// WithReasonMax bounds failure reasons; n <= 0 keeps the default
func WithReasonMax(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.reasonMax = n
		}
	}
}

// Sequential calls publishers one at a time in configured order
func Sequential(on bool) Option { return func(d *Dispatcher) { d.sequential = on } }

// WithMetrics records dispatches and publisher outcomes
func WithMetrics(m *metrics.Metrics) Option { return func(d *Dispatcher) { d.m = m } }

// WithClock replaces the wall clock
func WithClock(c ptime.Clock) Option { return func(d *Dispatcher) { d.now = c } }

// WithIDs replaces the dispatch id generator
func WithIDs(fn func() string) Option { return func(d *Dispatcher) { d.newID = fn } }

// New returns a dispatcher over pubs in the given order
// Publisher names must be unique
func New(pubs []Publisher, opts ...Option) (*Dispatcher, error) {
	seen := make(map[string]struct{}, len(pubs))
	for i, p := range pubs {
		if p == nil {
			return nil, perr.InvalidArgf("publisher %d is nil", i)
		}
		if _, dup := seen[p.Name()]; dup {
			return nil, perr.WithField(perr.Conflictf("publisher %q listed twice", p.Name()), "publishers")
		}
		seen[p.Name()] = struct{}{}
	}
	d := &Dispatcher{
		pubs:      append([]Publisher(nil), pubs...),
		reasonMax: DefaultReasonMax,
		now:       ptime.System,
		newID:     uuid.NewString,
		log:       logger.Named("dispatch"),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Destinations returns publisher names in report order
func (d *Dispatcher) Destinations() []string {
	out := make([]string, len(d.pubs))
	for i, p := range d.pubs {
		out[i] = p.Name()
	}
	return out
}

// Dispatch publishes snap everywhere and reports back to its conversation
// It never panics and never returns an error; every fault ends up in the report.
// The post is already Published, so caller cancellation does not reach publishers;
// their own clients bound each call.
func (d *Dispatcher) Dispatch(ctx context.Context, snap tracking.Snapshot) (rep Report) {
	rep = Report{
		DispatchID:   d.newID(),
		PostID:       snap.ID,
		Conversation: snap.Conversation,
		StartedAt:    d.now(),
	}
	ctx = logger.WithPost(context.WithoutCancel(ctx), snap.ID, rep.DispatchID)
	log := logger.C(ctx).With().Str("component", "dispatch").Logger()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rep.Fault = d.bound(fmt.Sprint(r))
		rep.FinishedAt = d.now()
		log.Error().Interface("panic", r).Msg("dispatch fault")
		d.finish(ctx, rep)
	}()

	d.m.Dispatch()
	payload := d.resolve(ctx, snap.Content.Media)
	rep.TextOnly = payload == nil

	d.notify(ctx, snap.Conversation, StartText)
	rep.Results = d.fanOut(ctx, snap.Content.Text, payload)
	rep.FinishedAt = d.now()

	log.Info().
		Int("destinations", len(rep.Results)).
		Int("failed", rep.Failed()).
		Bool("text_only", rep.TextOnly).
		Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("dispatch finished")
	d.finish(ctx, rep)
	return rep
}

func (d *Dispatcher) resolve(ctx context.Context, m *tracking.Media) *Payload {
	if m == nil || d.resolver == nil {
		return nil
	}
	p, err := d.resolver.Resolve(ctx, *m)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("kind", string(m.Kind)).Msg("media resolve failed, sending text only")
		return nil
	}
	return p
}

func (d *Dispatcher) fanOut(ctx context.Context, text string, media *Payload) []Outcome {
	out := make([]Outcome, len(d.pubs))
	var g errgroup.Group
	if d.sequential {
		g.SetLimit(1)
	}
	for i, p := range d.pubs {
		g.Go(func() error {
			out[i] = d.publishOne(ctx, p, text, media)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// publishOne isolates one publisher call; panics become failures
func (d *Dispatcher) publishOne(ctx context.Context, p Publisher, text string, media *Payload) (o Outcome) {
	name := p.Name()
	o.Destination = name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.OK = false
			o.Reason = d.bound(fmt.Sprintf("panic: %v", r))
			logger.C(ctx).Error().Str("destination", name).Interface("panic", r).Msg("publisher panicked")
		}
		o.Took = time.Since(start)
		d.m.Publish(name, o.OK, o.Took)
	}()

	err := p.Publish(ctx, text, media)
	if err != nil {
		o.Reason = d.bound(reason(err))
		logger.C(ctx).Warn().Err(err).Str("destination", name).Msg("publish failed")
		return o
	}
	o.OK = true
	logger.C(ctx).Info().Str("destination", name).Msg("published")
	return o
}

func (d *Dispatcher) finish(ctx context.Context, rep Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterTimeout)
	defer cancel()
	d.notify(ctx, rep.Conversation, rep.Text())
	if d.recorder == nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.C(ctx).Error().Interface("panic", r).Msg("recorder panicked")
			}
		}()
		if err := d.recorder.Record(ctx, rep); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("record dispatch failed")
		}
	}()
}

// notify is best effort; errors and panics are logged
func (d *Dispatcher) notify(ctx context.Context, conversation, text string) {
	if d.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.C(ctx).Error().Interface("panic", r).Msg("notifier panicked")
		}
	}()
	if err := d.notifier.Notify(ctx, conversation, text); err != nil {
		logger.C(ctx).Warn().Err(err).Str("conversation", conversation).Msg("notify failed")
	}
}

func (d *Dispatcher) bound(s string) string { return pstrings.Truncate(s, d.reasonMax) }

// reason prefers the structured message so wrapped transport noise stays out of reports
func reason(err error) string {
	if e, ok := perr.As(err); ok && e.Message() != "" {
		return e.Message()
	}
	if s := err.Error(); s != "" {
		return s
	}
	return "unknown error"
}
