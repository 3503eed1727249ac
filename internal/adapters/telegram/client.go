// Package telegram is the Bot API ingestion and notification adapter
package telegram

import (
	"context"
	"net/http"
	"strings"
	"time"

	"crossposter/internal/adapters/httpx"
	"crossposter/internal/platform/config"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/metrics"
	"crossposter/internal/platform/net/http/bind"
)

// Modes
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

const defaultAPI = "https://api.telegram.org"

// Config holds the bot settings
type Config struct {
	Token         string        `validate:"required"`
	Mode          string        `validate:"oneof=polling webhook"`
	WebhookURL    string        `validate:"omitempty,url"`
	WebhookSecret string        `validate:"omitempty,max=256"`
	APIBase       string        `validate:"omitempty,url"`
	PollTimeout   time.Duration `validate:"min=0"`
	Workers       int           `validate:"min=1"`
	Timeout       time.Duration
	MaxRetries    int
}

// FromConfig reads TELEGRAM_*
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("TELEGRAM_")
	return Config{
		Token:         c.MayString("TOKEN", ""),
		Mode:          c.MayEnum("MODE", ModePolling, ModePolling, ModeWebhook),
		WebhookURL:    c.MayURL("WEBHOOK_URL", ""),
		WebhookSecret: c.MayString("WEBHOOK_SECRET", ""),
		APIBase:       c.MayURL("API_BASE", defaultAPI),
		PollTimeout:   c.MayDuration("POLL_TIMEOUT", 30*time.Second),
		Workers:       c.MayInt("WORKERS", 4),
		Timeout:       c.MayDuration("TIMEOUT", 15*time.Second),
		MaxRetries:    c.MayInt("MAX_RETRIES", 2),
	}
}

// Validate checks c, including the public url webhook mode needs
func (c Config) Validate() error {
	if err := bind.Validate(c); err != nil {
		return err
	}
	if c.Mode == ModeWebhook && c.WebhookURL == "" {
		return perr.WithField(perr.InvalidArgf("webhook mode needs TELEGRAM_WEBHOOK_URL"), "webhook_url")
	}
	return nil
}

// Client talks to the Bot API
// The token is part of every URL, so both clients redact it from logs and errors
type Client struct {
	api   *httpx.Client
	poll  *httpx.Client
	token string
}

// NewClient builds the API client and a long poll client with a wider timeout
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	base := cfg.APIBase
	if base == "" {
		base = defaultAPI
	}
	return &Client{
		api: httpx.New(httpx.Options{
			Name:       "telegram",
			BaseURL:    base,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Secret:     cfg.Token,
			Metrics:    m,
		}),
		poll: httpx.New(httpx.Options{
			Name:      "telegram-poll",
			BaseURL:   base,
			Timeout:   cfg.PollTimeout + 10*time.Second,
			Secret:    cfg.Token,
			NoBreaker: true,
		}),
		token: cfg.Token,
	}
}

func (c *Client) method(name string) string { return "/bot" + c.token + "/" + name }

// call posts params to a Bot API method and unwraps the result envelope
func call[T any](ctx context.Context, hc *httpx.Client, path string, params any) (T, error) {
	var env envelope[T]
	err := hc.JSON(ctx, http.MethodPost, path, nil, params, &env)
	if err != nil {
		return env.Result, err
	}
	if !env.OK {
		return env.Result, perr.Upstreamf("telegram: %s", strings.TrimSpace(env.Description))
	}
	return env.Result, nil
}

// GetMe returns the bot account; handy as a token check
func (c *Client) GetMe(ctx context.Context) (User, error) {
	return call[User](ctx, c.api, c.method("getMe"), nil)
}

// SendMessage posts text to chatID, optionally as a reply and with a keyboard
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64, kb *InlineKeyboardMarkup) (Message, error) {
	params := map[string]any{"chat_id": chatID, "text": text}
	if replyTo != 0 {
		params["reply_parameters"] = map[string]any{"message_id": replyTo, "allow_sending_without_reply": true}
	}
	if kb != nil {
		params["reply_markup"] = kb
	}
	return call[Message](ctx, c.api, c.method("sendMessage"), params)
}

// EditMessageText replaces a message's text; a nil kb removes the keyboard
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb *InlineKeyboardMarkup) error {
	params := map[string]any{"chat_id": chatID, "message_id": messageID, "text": text}
	if kb != nil {
		params["reply_markup"] = kb
	}
	_, err := call[Message](ctx, c.api, c.method("editMessageText"), params)
	return err
}

// AnswerCallbackQuery acknowledges a button press; text shows as a toast when set
func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string) error {
	params := map[string]any{"callback_query_id": id}
	if text != "" {
		params["text"] = text
	}
	_, err := call[bool](ctx, c.api, c.method("answerCallbackQuery"), params)
	return err
}

// GetFile resolves a file id to a downloadable path
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	f, err := call[File](ctx, c.api, c.method("getFile"), map[string]any{"file_id": fileID})
	if err != nil {
		return f, err
	}
	if f.FilePath == "" {
		return f, perr.Upstreamf("telegram: file %s has no path", fileID)
	}
	return f, nil
}

// Download fetches a file returned by GetFile
func (c *Client) Download(ctx context.Context, filePath string) (*httpx.Response, error) {
	p := "/file/bot" + c.token + "/" + strings.TrimLeft(filePath, "/")
	return c.api.Do(ctx, httpx.Request{Method: http.MethodGet, Path: p})
}

// GetUpdates long polls for updates after offset
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "channel_post", "callback_query"},
	}
	return call[[]Update](ctx, c.poll, c.method("getUpdates"), params)
}

// SetWebhook points Telegram at hookURL; secret is echoed back in X-Telegram-Bot-Api-Secret-Token
func (c *Client) SetWebhook(ctx context.Context, hookURL, secret string) error {
	params := map[string]any{
		"url":             hookURL,
		"allowed_updates": []string{"message", "channel_post", "callback_query"},
	}
	if secret != "" {
		params["secret_token"] = secret
	}
	_, err := call[bool](ctx, c.api, c.method("setWebhook"), params)
	return err
}

// DeleteWebhook switches the bot back to getUpdates
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := call[bool](ctx, c.api, c.method("deleteWebhook"), map[string]any{"drop_pending_updates": false})
	return err
}

// DeleteMessage removes a message the bot sent
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	_, err := call[bool](ctx, c.api, c.method("deleteMessage"), map[string]any{"chat_id": chatID, "message_id": messageID})
	return err
}
