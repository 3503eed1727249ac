// Package twitter publishes tweets through the v2 API
package twitter

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"crossposter/internal/adapters/httpx"
	"crossposter/internal/core/dispatch"
	"crossposter/internal/platform/config"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
)

// Name is the destination label
const Name = "twitter"

const (
	defaultAPI    = "https://api.twitter.com"
	defaultUpload = "https://upload.twitter.com"
)

// Config takes either a user AccessToken or OAuth2 client credentials
type Config struct {
	ClientID     string `validate:"required_without=AccessToken"`
	ClientSecret string `validate:"required_with=ClientID"`
	AccessToken  string `validate:"required_without=ClientID"`
	APIBase      string `validate:"omitempty,url"`
	UploadBase   string `validate:"omitempty,url"`
}

// FromConfig reads TWITTER_*
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("TWITTER_")
	return Config{
		ClientID:     c.MayString("CLIENT_ID", ""),
		ClientSecret: c.MayString("CLIENT_SECRET", ""),
		AccessToken:  c.MayString("ACCESS_TOKEN", ""),
		APIBase:      c.MayURL("API_BASE", defaultAPI),
		UploadBase:   c.MayURL("UPLOAD_BASE", defaultUpload),
	}
}

// Publisher posts tweets
type Publisher struct {
	c      *httpx.Client
	cfg    Config
	tokens *tokenSource
	log    *logger.Logger
}

// New returns a twitter publisher
func New(cfg Config, o httpx.Options) *Publisher {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPI
	}
	if cfg.UploadBase == "" {
		cfg.UploadBase = defaultUpload
	}
	o.Name, o.BaseURL = Name, cfg.APIBase
	c := httpx.New(o)
	return &Publisher{
		c:   c,
		cfg: cfg,
		tokens: &tokenSource{
			c:        c,
			tokenURL: cfg.APIBase + "/2/oauth2/token",
			id:       cfg.ClientID,
			secret:   cfg.ClientSecret,
			static:   cfg.AccessToken,
			now:      time.Now,
		},
		log: logger.Named(Name),
	}
}

// Name implements dispatch.Publisher
func (p *Publisher) Name() string { return Name }

// Publish uploads media when present then creates the tweet
func (p *Publisher) Publish(ctx context.Context, text string, media *dispatch.Payload) error {
	err := p.publish(ctx, text, media)
	if perr.IsCode(err, perr.ErrorCodeUnauthorized) && p.cfg.AccessToken == "" {
		p.tokens.invalidate()
		err = p.publish(ctx, text, media)
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, text string, media *dispatch.Payload) error {
	tok, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{"text": text}
	if media != nil && len(media.Data) > 0 {
		id, err := p.upload(ctx, tok, media)
		if err != nil {
			return err
		}
		body["media"] = map[string][]string{"media_ids": {id}}
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.c.JSON(ctx, http.MethodPost, "/2/tweets", httpx.Bearer(tok), body, &out); err != nil {
		return err
	}
	if out.Data.ID == "" {
		return perr.Upstreamf("twitter returned no tweet id")
	}
	p.log.Debug().Str("tweet_id", out.Data.ID).Msg("tweet created")
	return nil
}

func (p *Publisher) upload(ctx context.Context, tok string, media *dispatch.Payload) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	name := media.Filename
	if name == "" {
		name = "media"
	}
	fw, err := mw.CreateFormFile("media", name)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "twitter build upload")
	}
	if _, err := fw.Write(media.Data); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "twitter build upload")
	}
	if err := mw.Close(); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "twitter build upload")
	}

	resp, err := p.c.Do(ctx, httpx.Request{
		Method:      http.MethodPost,
		Path:        p.cfg.UploadBase + "/1.1/media/upload.json",
		Header:      httpx.Bearer(tok),
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
	if err != nil {
		return "", perr.WithOp(err, "twitter.upload")
	}
	var out struct {
		MediaID string `json:"media_id_string"`
	}
	if err := httpx.Decode(Name, resp, &out); err != nil {
		return "", err
	}
	if out.MediaID == "" {
		return "", perr.Upstreamf("twitter upload returned no media id")
	}
	return out.MediaID, nil
}
