// Package publish builds the configured destination publishers
package publish

import (
	"slices"
	"strings"
	"time"

	"crossposter/internal/adapters/httpx"
	"crossposter/internal/adapters/publish/bluesky"
	"crossposter/internal/adapters/publish/dryrun"
	"crossposter/internal/adapters/publish/farcaster"
	"crossposter/internal/adapters/publish/twitter"
	"crossposter/internal/core/dispatch"
	"crossposter/internal/platform/config"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/metrics"
	"crossposter/internal/platform/net/http/bind"
)

// Known lists every destination Build understands
var Known = []string{bluesky.Name, twitter.Name, farcaster.Name, dryrun.Name}

// HTTP is the per publisher request policy
type HTTP struct {
	Timeout    time.Duration `validate:"gt=0"`
	MaxRetries int           `validate:"min=0,max=10"`
	RetryBase  time.Duration `validate:"gt=0"`
}

// Settings carries everything Build may need
type Settings struct {
	HTTP      HTTP
	Bluesky   bluesky.Config
	Twitter   twitter.Config
	Farcaster farcaster.Config
	Metrics   *metrics.Metrics
}

// FromConfig reads PUBLISH_* and every destination's own keys
func FromConfig(cfg config.Conf) Settings {
	c := cfg.Prefix("PUBLISH_")
	return Settings{
		HTTP: HTTP{
			Timeout:    c.MayDuration("TIMEOUT", 15*time.Second),
			MaxRetries: c.MayInt("MAX_RETRIES", 2),
			RetryBase:  c.MayDuration("RETRY_BASE", 500*time.Millisecond),
		},
		Bluesky:   bluesky.FromConfig(cfg),
		Twitter:   twitter.FromConfig(cfg),
		Farcaster: farcaster.FromConfig(cfg),
	}
}

func (s Settings) options() httpx.Options {
	return httpx.Options{
		Timeout:    s.HTTP.Timeout,
		MaxRetries: s.HTTP.MaxRetries,
		RetryBase:  s.HTTP.RetryBase,
		Metrics:    s.Metrics,
	}
}

// Build returns publishers for names in the same order
// Unknown, repeated or unconfigured names fail so a bad deploy stops at startup
func Build(names []string, s Settings) ([]dispatch.Publisher, error) {
	if err := bind.Validate(s.HTTP); err != nil {
		return nil, perr.WithOp(err, "publish.http")
	}
	out := make([]dispatch.Publisher, 0, len(names))
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			return nil, perr.WithField(perr.Conflictf("publisher %q listed twice", name), "publishers")
		}
		seen[name] = true

		p, err := build(name, s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func build(name string, s Settings) (dispatch.Publisher, error) {
	switch name {
	case bluesky.Name:
		if err := configured(name, s.Bluesky); err != nil {
			return nil, err
		}
		return bluesky.New(s.Bluesky, s.options()), nil
	case twitter.Name:
		if err := configured(name, s.Twitter); err != nil {
			return nil, err
		}
		return twitter.New(s.Twitter, s.options()), nil
	case farcaster.Name:
		if err := configured(name, s.Farcaster); err != nil {
			return nil, err
		}
		return farcaster.New(s.Farcaster, s.options()), nil
	case dryrun.Name:
		return dryrun.New(), nil
	}
	return nil, perr.WithField(
		perr.InvalidArgf("unknown publisher %q, known: %s", name, strings.Join(slices.Sorted(slices.Values(Known)), ", ")),
		"publishers",
	)
}

func configured(name string, v any) error {
	err := bind.Validate(v)
	if err == nil {
		return nil
	}
	msg := err.Error()
	if e, ok := perr.As(err); ok {
		msg = e.Message()
	}
	return perr.WithField(perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s is not configured: %s", name, msg), name)
}
