// Package bluesky publishes posts to a Bluesky PDS over XRPC
package bluesky

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"crossposter/internal/adapters/httpx"
	"crossposter/internal/core/dispatch"
	"crossposter/internal/core/tracking"
	"crossposter/internal/platform/config"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
)

// Name is the destination label
const Name = "bluesky"

const (
	defaultPDS = "https://bsky.social"
	maxChars   = 300
)

// Config holds the account session inputs
type Config struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
	PDS        string `validate:"omitempty,url"`
}

// FromConfig reads BLUESKY_*
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("BLUESKY_")
	return Config{
		Identifier: c.MayString("IDENTIFIER", ""),
		Password:   c.MayString("PASSWORD", ""),
		PDS:        c.MayURL("PDS", defaultPDS),
	}
}

type session struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`
}

type blobRef struct {
	Blob map[string]any `json:"blob"`
}

// Publisher posts app.bsky.feed.post records
type Publisher struct {
	c   *httpx.Client
	cfg Config
	log *logger.Logger
	now func() time.Time

	mu   sync.Mutex
	sess *session
}

// New returns a publisher; the session is created lazily on first publish
func New(cfg Config, o httpx.Options) *Publisher {
	if cfg.PDS == "" {
		cfg.PDS = defaultPDS
	}
	o.Name, o.BaseURL = Name, cfg.PDS
	return &Publisher{c: httpx.New(o), cfg: cfg, log: logger.Named(Name), now: time.Now}
}

// Name implements dispatch.Publisher
func (p *Publisher) Name() string { return Name }

// Publish creates one post, embedding a photo when media is an image
func (p *Publisher) Publish(ctx context.Context, text string, media *dispatch.Payload) error {
	if n := utf8.RuneCountInString(text); n > maxChars {
		return perr.InvalidArgf("text is %d characters, limit is %d", n, maxChars)
	}
	err := p.publish(ctx, text, media)
	if tokenExpired(err) {
		p.renew(ctx)
		err = p.publish(ctx, text, media)
	}
	return err
}

// tokenExpired matches a rejected access JWT; a PDS reports it as 400 ExpiredToken as often as 401
func tokenExpired(err error) bool {
	if err == nil {
		return false
	}
	if perr.IsCode(err, perr.ErrorCodeUnauthorized) {
		return true
	}
	var se *httpx.StatusError
	if !errors.As(err, &se) {
		return false
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(se.Body), &body) != nil {
		return false
	}
	return body.Error == "ExpiredToken" || body.Error == "InvalidToken"
}

func (p *Publisher) publish(ctx context.Context, text string, media *dispatch.Payload) error {
	s, err := p.session(ctx)
	if err != nil {
		return err
	}
	record := map[string]any{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": p.now().UTC().Format(time.RFC3339),
	}
	if media != nil && media.Kind == tracking.Photo && len(media.Data) > 0 {
		blob, err := p.upload(ctx, s, media)
		if err != nil {
			return err
		}
		record["embed"] = map[string]any{
			"$type":  "app.bsky.embed.images",
			"images": []map[string]any{{"alt": "", "image": blob}},
		}
	} else if media != nil {
		p.log.Info().Str("kind", string(media.Kind)).Msg("media kind not supported, posting text only")
	}

	var out struct {
		URI string `json:"uri"`
	}
	err = p.c.JSON(ctx, http.MethodPost, "/xrpc/com.atproto.repo.createRecord", httpx.Bearer(s.AccessJwt), map[string]any{
		"repo":       s.DID,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}, &out)
	if err != nil {
		return err
	}
	p.log.Debug().Str("uri", out.URI).Msg("post created")
	return nil
}

func (p *Publisher) upload(ctx context.Context, s *session, media *dispatch.Payload) (map[string]any, error) {
	ct := media.ContentType
	if ct == "" {
		ct = "image/jpeg"
	}
	resp, err := p.c.Do(ctx, httpx.Request{
		Method:      http.MethodPost,
		Path:        "/xrpc/com.atproto.repo.uploadBlob",
		Header:      httpx.Bearer(s.AccessJwt),
		Body:        media.Data,
		ContentType: ct,
	})
	if err != nil {
		return nil, err
	}
	var ref blobRef
	if err := httpx.Decode(Name, resp, &ref); err != nil {
		return nil, err
	}
	if ref.Blob == nil {
		return nil, perr.Upstreamf("bluesky upload returned no blob")
	}
	return ref.Blob, nil
}

func (p *Publisher) session(ctx context.Context) (*session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil {
		return p.sess, nil
	}
	var s session
	err := p.c.JSON(ctx, http.MethodPost, "/xrpc/com.atproto.server.createSession", nil, map[string]string{
		"identifier": p.cfg.Identifier,
		"password":   p.cfg.Password,
	}, &s)
	if err != nil {
		return nil, perr.WithOp(err, "bluesky.createSession")
	}
	if s.AccessJwt == "" || s.DID == "" {
		return nil, perr.Upstreamf("bluesky session missing token or did")
	}
	p.log.Info().Str("handle", s.Handle).Msg("session created")
	p.sess = &s
	return p.sess, nil
}

// renew swaps the session through refreshSession, or clears it so the next call logs in again
func (p *Publisher) renew(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.sess
	p.sess = nil
	if old == nil || old.RefreshJwt == "" {
		return
	}
	var s session
	err := p.c.JSON(ctx, http.MethodPost, "/xrpc/com.atproto.server.refreshSession", httpx.Bearer(old.RefreshJwt), nil, &s)
	if err != nil || s.AccessJwt == "" {
		p.log.Info().Err(err).Msg("session refresh failed, logging in again")
		return
	}
	if s.DID == "" {
		s.DID = old.DID
	}
	p.log.Debug().Str("handle", s.Handle).Msg("session refreshed")
	p.sess = &s
}
