package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	perr "crossposter/internal/platform/errors"
	pnet "crossposter/internal/platform/net"
	"crossposter/internal/platform/net/middleware"
)

func writeErr(w http.ResponseWriter, _ *http.Request, err error) {
	w.WriteHeader(perr.HTTPStatus(err))
}

func TestAuth_NilPortPassesThrough(t *testing.T) {
	if middleware.TokenPort("  ") != nil {
		t.Fatalf("blank token should disable auth")
	}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	rr := httptest.NewRecorder()
	middleware.Auth(nil, writeErr)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected next to run")
	}
}

func TestAuth_StaticToken(t *testing.T) {
	port := middleware.TokenPort("s3cret")
	cases := []struct {
		name   string
		header string
		status int
		caller string
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic s3cret", status: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "ok", header: "Bearer s3cret", status: http.StatusOK, caller: "api"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = pnet.Caller(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rr := httptest.NewRecorder()
			middleware.Auth(port, writeErr)(next).ServeHTTP(rr, req)
			if rr.Code != c.status || seen != c.caller {
				t.Fatalf("status=%d caller=%q", rr.Code, seen)
			}
		})
	}
}

func TestStaticToken_CustomCaller(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	caller, err := middleware.StaticToken{Token: "t", Caller: "relay"}.Parse(req)
	if err != nil || caller != "relay" {
		t.Fatalf("caller=%q err=%v", caller, err)
	}
}
