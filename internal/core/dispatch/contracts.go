// Package dispatch fans an approved post out to every enabled destination
package dispatch

import (
	"context"

	"crossposter/internal/core/tracking"
)

// Payload is resolved media ready to hand to a publisher
// Publishers share one Payload concurrently and must treat Data as read only
type Payload struct {
	Kind        tracking.MediaKind
	Filename    string
	ContentType string
	Data        []byte
	// URL is a public location of the same bytes when the source exposes one
	URL string
}

// Publisher delivers text and optional media to one destination
// A nil error is success; any error becomes a failure line in the report
type Publisher interface {
	Name() string
	Publish(ctx context.Context, text string, media *Payload) error
}

// MediaResolver turns an opaque media reference into bytes
type MediaResolver interface {
	Resolve(ctx context.Context, m tracking.Media) (*Payload, error)
}

// Notifier posts text back into the originating conversation
type Notifier interface {
	Notify(ctx context.Context, conversation, text string) error
}

// Recorder keeps an audit trail of finished dispatches
type Recorder interface {
	Record(ctx context.Context, r Report) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc struct {
	Dest string
	Fn   func(ctx context.Context, text string, media *Payload) error
}

// Name returns Dest
func (p PublisherFunc) Name() string { return p.Dest }

// Publish calls Fn
func (p PublisherFunc) Publish(ctx context.Context, text string, media *Payload) error {
	return p.Fn(ctx, text, media)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, conversation, text string) error

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, conversation, text string) error {
	return f(ctx, conversation, text)
}
