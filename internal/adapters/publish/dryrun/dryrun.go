// Package dryrun is a publisher that only logs, for local runs
package dryrun

import (
	"context"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/platform/logger"
)

// Name is the destination label
const Name = "dryrun"

// Publisher logs what it would have posted
type Publisher struct {
	log *logger.Logger
}

// New returns a dry run publisher
func New() *Publisher { return &Publisher{log: logger.Named(Name)} }

// Name implements dispatch.Publisher
func (p *Publisher) Name() string { return Name }

// Publish always succeeds
func (p *Publisher) Publish(ctx context.Context, text string, media *dispatch.Payload) error {
	ev := logger.C(ctx).Info().Str("component", Name).Str("text", text)
	if media != nil {
		ev = ev.Str("media_kind", string(media.Kind)).Int("media_bytes", len(media.Data))
	}
	ev.Msg("would publish")
	return nil
}
