package twitter

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"sync"
	"time"

	"crossposter/internal/adapters/httpx"
	perr "crossposter/internal/platform/errors"
)

const (
	defaultExpiry = 2 * time.Hour
	refreshEarly  = 30 * time.Second
	tokenScope    = "tweet.read tweet.write users.read"
)

// tokenSource hands out a bearer token, refreshing client credentials before expiry
type tokenSource struct {
	c        *httpx.Client
	tokenURL string
	id       string
	secret   string
	static   string
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if s.static != "" {
		return s.static, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Before(s.expiry.Add(-refreshEarly)) {
		return s.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"scope":         {tokenScope},
		"client_id":     {s.id},
		"client_secret": {s.secret},
	}
	h := http.Header{}
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(s.id+":"+s.secret)))
	resp, err := s.c.Do(ctx, httpx.Request{
		Method:      http.MethodPost,
		Path:        s.tokenURL,
		Header:      h,
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return "", perr.WithOp(err, "twitter.token")
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := httpx.Decode(Name, resp, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", perr.Upstreamf("twitter token refresh returned no access token")
	}
	ttl := defaultExpiry
	if tok.ExpiresIn > 0 {
		ttl = time.Duration(tok.ExpiresIn) * time.Second
	}
	s.token, s.expiry = tok.AccessToken, s.now().Add(ttl)
	return s.token, nil
}

// invalidate forgets a refreshed token after the API rejected it
func (s *tokenSource) invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
