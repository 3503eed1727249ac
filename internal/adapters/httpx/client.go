// Package httpx is the resilient HTTP client shared by publishers and the Telegram adapter
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/metrics"
	pstrings "crossposter/internal/platform/strings"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUA        = "crossposter"
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryMax  = 10 * time.Second
	defaultMaxBody   = 64 << 20
	snippetMax       = 200
)

// Options configures a Client
type Options struct {
	// Name labels logs, errors and breaker metrics
	Name      string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// MaxRetries zero sends each request once
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration

	// Secret is masked in logged paths and transport errors, for tokens carried in URLs
	Secret string

	// NoBreaker disables the circuit breaker
	NoBreaker bool
	// PublicOnly refuses to dial loopback, private and link local addresses; ignored with HTTPClient
	PublicOnly bool
	MaxBody    int64

	Metrics    *metrics.Metrics
	HTTPClient *http.Client
}

// Request is one call; Body is replayed on every attempt
type Request struct {
	Method string
	// Path is joined to BaseURL unless it is already absolute
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
}

// Response is a fully read response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client runs requests through a retry policy and circuit breaker
type Client struct {
	http *http.Client
	opts Options
	exec failsafe.Executor[*Response]
	log  logger.Logger
	now  func() time.Time
}

// New builds a Client with defaults filled in
func New(o Options) *Client {
	if o.Name == "" {
		o.Name = "http"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryMax < o.RetryBase {
		o.RetryMax = max(defaultRetryMax, o.RetryBase)
	}
	if o.MaxBody <= 0 {
		o.MaxBody = defaultMaxBody
	}
	hc := o.HTTPClient
	switch {
	case hc != nil:
	case o.PublicOnly:
		hc = publicClient(o.Timeout)
	default:
		hc = &http.Client{Timeout: o.Timeout}
	}

	c := &Client{
		http: hc,
		opts: o,
		log:  logger.Named("httpx").With().Str("client", o.Name).Logger(),
		now:  time.Now,
	}
	c.exec = c.executor()
	return c
}

// Name is the label this client was built with
func (c *Client) Name() string { return c.opts.Name }

func (c *Client) executor() failsafe.Executor[*Response] {
	retry := retrypolicy.NewBuilder[*Response]().
		WithBackoff(c.opts.RetryBase, c.opts.RetryMax).
		WithMaxRetries(c.opts.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ *Response, err error) bool { return perr.Retryable(err) }).
		Build()
	if c.opts.NoBreaker {
		return failsafe.With(retry)
	}

	c.opts.Metrics.Breaker(c.opts.Name, 0)
	cb := circuitbreaker.NewBuilder[*Response]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(15 * time.Second).
		WithSuccessThreshold(1).
		HandleIf(func(_ *Response, err error) bool { return perr.Retryable(err) }).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			c.log.Warn().
				Str("from_state", stateName(e.OldState)).
				Str("to_state", stateName(e.NewState)).
				Msg("circuit breaker state change")
			c.opts.Metrics.Breaker(c.opts.Name, stateValue(e.NewState))
		}).
		Build()
	return failsafe.With(retry, cb)
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	}
	return "closed"
}

func stateValue(s circuitbreaker.State) int {
	switch s {
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	}
	return 0
}

// Do runs r and returns the response for any 2xx status
// Other statuses map to perr codes; transient ones are retried with backoff
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	target, err := c.url(r)
	if err != nil {
		return nil, err
	}
	attempt := 0
	resp, err := c.exec.WithContext(ctx).Get(func() (*Response, error) {
		attempt++
		return c.once(ctx, r, target, attempt)
	})
	if err == nil {
		return resp, nil
	}
	return nil, c.classify(ctx, err)
}

func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s circuit open", c.opts.Name)
	}
	if e, ok := perr.As(err); ok {
		return e
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return perr.Wrapf(ctxErr, perr.ErrorCodeTimeout, "%s request cancelled", c.opts.Name)
	}
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s request failed", c.opts.Name)
}

func (c *Client) url(r Request) (string, error) {
	raw := r.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if c.opts.BaseURL == "" {
			return "", perr.InvalidArgf("%s: relative path %q without base url", c.opts.Name, raw)
		}
		raw = c.opts.BaseURL + "/" + strings.TrimLeft(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s: bad url", c.opts.Name)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) once(ctx context.Context, r Request, target string, attempt int) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s new request failed", c.opts.Name)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	start := c.now()
	hr, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		err = c.redactErr(err)
		c.log.Warn().Err(err).Str("method", method).Int("attempt", attempt).Dur("latency", lat).Msg("transport error")
		return nil, c.transportErr(ctx, err)
	}
	defer hr.Body.Close()

	data, err := io.ReadAll(io.LimitReader(hr.Body, c.opts.MaxBody))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s read body failed", c.opts.Name)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", c.redact(req.URL.Path)).
		Int("status", hr.StatusCode).
		Int("attempt", attempt).
		Dur("latency", lat).
		Int("bytes", len(data)).
		Msg("http response")

	if hr.StatusCode >= 200 && hr.StatusCode < 300 {
		return &Response{Status: hr.StatusCode, Header: hr.Header, Body: data}, nil
	}
	return nil, c.statusErr(hr.StatusCode, hr.Header, data)
}

func (c *Client) redact(s string) string {
	if c.opts.Secret == "" {
		return s
	}
	return strings.ReplaceAll(s, c.opts.Secret, "***")
}

// redactErr flattens err when it mentions the secret; url.Error quotes the full URL
func (c *Client) redactErr(err error) error {
	if c.opts.Secret == "" || !strings.Contains(err.Error(), c.opts.Secret) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &redacted{msg: c.redact(err.Error()), timeout: true}
	}
	return &redacted{msg: c.redact(err.Error())}
}

type redacted struct {
	msg     string
	timeout bool
}

func (r *redacted) Error() string   { return r.msg }
func (r *redacted) Timeout() bool   { return r.timeout }
func (r *redacted) Temporary() bool { return false }

func (c *Client) transportErr(ctx context.Context, err error) error {
	if errors.Is(err, ErrBlockedAddress) {
		return perr.Wrapf(err, perr.ErrorCodeForbidden, "%s refused a non public address", c.opts.Name)
	}
	if ctx.Err() != nil {
		// the executor stops on its own once ctx is done
		return perr.Wrapf(err, perr.ErrorCodeTimeout, "%s request cancelled", c.opts.Name)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return perr.Wrapf(err, perr.ErrorCodeTimeout, "%s timed out", c.opts.Name)
	}
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s unreachable", c.opts.Name)
}

// StatusError keeps the raw status and body behind a perr code
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string { return fmt.Sprintf("status %d: %s", e.Status, e.Body) }

// HTTPStatus returns the remote status
func (e *StatusError) HTTPStatus() int { return e.Status }

func (c *Client) statusErr(status int, h http.Header, body []byte) error {
	snippet := pstrings.Truncate(strings.TrimSpace(string(body)), snippetMax)
	se := &StatusError{Status: status, Body: snippet}
	msg := fmt.Sprintf("%s %d", c.opts.Name, status)
	if s := remoteMessage(body); s != "" {
		msg += ": " + s
	}

	code := perr.ErrorCodeUpstream
	switch {
	case status == http.StatusUnauthorized:
		code = perr.ErrorCodeUnauthorized
	case status == http.StatusForbidden:
		code = perr.ErrorCodeForbidden
	case status == http.StatusNotFound:
		code = perr.ErrorCodeNotFound
	case status == http.StatusTooManyRequests:
		code = perr.ErrorCodeTooManyRequests
		if ra := h.Get("Retry-After"); ra != "" {
			msg += " (retry after " + ra + "s)"
		}
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		code = perr.ErrorCodeTimeout
	case status >= 500:
		code = perr.ErrorCodeUnavailable
	}
	return perr.Wrap(se, code, msg)
}

// remoteMessage digs a human message out of the usual JSON error shapes
func remoteMessage(body []byte) string {
	var shape struct {
		Message     string `json:"message"`
		Error       any    `json:"error"`
		Description string `json:"description"`
		Detail      string `json:"detail"`
		Errors      []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &shape) != nil {
		return ""
	}
	switch {
	case shape.Description != "":
		return shape.Description
	case shape.Message != "":
		return shape.Message
	case shape.Detail != "":
		return shape.Detail
	case len(shape.Errors) > 0 && shape.Errors[0].Message != "":
		return shape.Errors[0].Message
	}
	if s, ok := shape.Error.(string); ok {
		return s
	}
	return ""
}

// JSON sends in as a JSON body (when non nil) and decodes the reply into out (when non nil)
func (c *Client) JSON(ctx context.Context, method, path string, header http.Header, in, out any) error {
	r := Request{Method: method, Path: path, Header: header}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "%s encode body", c.opts.Name)
		}
		r.Body, r.ContentType = b, "application/json"
	}
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	return Decode(c.opts.Name, resp, out)
}

// Decode unmarshals resp into out; a nil out discards the body
func Decode(name string, resp *Response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "%s decode response", name)
	}
	return nil
}

// Bearer returns an Authorization header for token
func Bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
