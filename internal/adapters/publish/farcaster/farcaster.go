// Package farcaster publishes casts through the Warpcast API
package farcaster

import (
	"context"
	"net/http"

	"crossposter/internal/adapters/httpx"
	"crossposter/internal/core/dispatch"
	"crossposter/internal/platform/config"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
)

// Name is the destination label
const Name = "farcaster"

const (
	defaultAPI = "https://api.warpcast.com"
	maxBytes   = 320
)

// Config holds the Warpcast app bearer token
type Config struct {
	AuthToken string `validate:"required"`
	APIBase   string `validate:"omitempty,url"`
}

// FromConfig reads FARCASTER_*
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("FARCASTER_")
	return Config{
		AuthToken: c.MayString("AUTH_TOKEN", ""),
		APIBase:   c.MayURL("API_BASE", defaultAPI),
	}
}

// Publisher posts casts
// Warpcast takes media only as embed URLs, so bytes without a public URL are skipped
type Publisher struct {
	c   *httpx.Client
	cfg Config
	log *logger.Logger
}

// New returns a farcaster publisher
func New(cfg Config, o httpx.Options) *Publisher {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPI
	}
	o.Name, o.BaseURL = Name, cfg.APIBase
	return &Publisher{c: httpx.New(o), cfg: cfg, log: logger.Named(Name)}
}

// Name implements dispatch.Publisher
func (p *Publisher) Name() string { return Name }

// Publish creates one cast
func (p *Publisher) Publish(ctx context.Context, text string, media *dispatch.Payload) error {
	if len(text) > maxBytes {
		return perr.InvalidArgf("text is %d bytes, limit is %d", len(text), maxBytes)
	}
	body := map[string]any{"text": text}
	if media != nil {
		if media.URL != "" {
			body["embeds"] = []string{media.URL}
		} else {
			p.log.Info().Str("kind", string(media.Kind)).Msg("media has no public url, casting text only")
		}
	}
	var out struct {
		Result struct {
			Cast struct {
				Hash string `json:"hash"`
			} `json:"cast"`
		} `json:"result"`
	}
	if err := p.c.JSON(ctx, http.MethodPost, "/v2/casts", httpx.Bearer(p.cfg.AuthToken), body, &out); err != nil {
		return err
	}
	p.log.Debug().Str("hash", out.Result.Cast.Hash).Msg("cast created")
	return nil
}
