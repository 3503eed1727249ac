package farcaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crossposter/internal/adapters/httpx"
	"crossposter/internal/core/dispatch"
	"crossposter/internal/core/tracking"
	perr "crossposter/internal/platform/errors"
	kit "crossposter/internal/platform/testkit"
)

func TestPublish(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kit.MustEqual(t, r.URL.Path, "/v2/casts", "path")
		kit.MustEqual(t, r.Header.Get("Authorization"), "Bearer wc-token", "auth")
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		got = append(got, in)
		_, _ = w.Write([]byte(`{"result":{"cast":{"hash":"0xabc"}}}`))
	}))
	defer srv.Close()
	p := New(Config{AuthToken: "wc-token", APIBase: srv.URL}, httpx.Options{RetryBase: time.Millisecond, NoBreaker: true})

	cases := []struct {
		name   string
		media  *dispatch.Payload
		embeds bool
	}{
		{"text only", nil, false},
		{"public url", &dispatch.Payload{Kind: tracking.Photo, URL: "https://cdn.example.com/a.jpg"}, true},
		{"bytes only", &dispatch.Payload{Kind: tracking.Photo, Data: []byte{1}}, false},
	}
	for i, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := p.Publish(context.Background(), "gm", c.media); err != nil {
				t.Fatalf("publish: %v", err)
			}
			_, has := got[i]["embeds"]
			kit.MustEqual(t, has, c.embeds, "embeds")
		})
	}
}

func TestPublish_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Cast text too long"}]}`))
	}))
	defer srv.Close()
	p := New(Config{AuthToken: "t", APIBase: srv.URL}, httpx.Options{NoBreaker: true})

	err := p.Publish(context.Background(), "x", nil)
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("want upstream, got %v", err)
	}
	kit.MustContain(t, err.Error(), "Cast text too long")

	err = p.Publish(context.Background(), strings.Repeat("b", 321), nil)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}
