package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "crossposter/internal/platform/errors"
	phttp "crossposter/internal/platform/net/http"
	"crossposter/internal/platform/net/middleware"

	"github.com/go-chi/chi/v5"
)

type echoIn struct {
	Name string `json:"name" validate:"required"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body=%s", err, rec.Body.String())
	}
	return env
}

func TestJSON(t *testing.T) {
	t.Parallel()

	h := JSON(func(_ *http.Request, in echoIn) (any, error) {
		if in.Name == "boom" {
			return nil, perr.Conflictf("taken")
		}
		if in.Name == "new" {
			return Created(in.Name), nil
		}
		return in.Name, nil
	})
	cases := []struct {
		body   string
		status int
		code   perr.ErrorCode
	}{
		{`{"name":"ok"}`, http.StatusOK, 0},
		{`{"name":"new"}`, http.StatusCreated, 0},
		{`{"name":"boom"}`, http.StatusConflict, perr.ErrorCodeConflict},
		{`{}`, http.StatusBadRequest, perr.ErrorCodeValidation},
		{`{"name":`, http.StatusBadRequest, perr.ErrorCodeJSON},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.body)))
		if rec.Code != c.status {
			t.Fatalf("%s: status = %d, want %d (%s)", c.body, rec.Code, c.status, rec.Body.String())
		}
		if env := decode(t, rec); env.Code != c.code {
			t.Fatalf("%s: code = %v, want %v", c.body, env.Code, c.code)
		}
	}
}

func TestCall(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Call(func(*http.Request) (any, error) { return nil, errors.New("plain") })(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Call(func(*http.Request) (any, error) { return map[string]int{"n": 1}, nil })(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMountUnder_AndProtected(t *testing.T) {
	t.Parallel()

	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

	MountUnder(r, "/api/v1", nil, func(sub Router) {
		sub.Get("/open", ok)
		Protected(sub, middleware.TokenPort("s3cret"), func(p Router) {
			p.Get("/closed", ok)
		})
	})
	MountUnder(r, "/", nil, func(g Router) { g.Get("/root", ok) })

	cases := []struct {
		path, auth string
		status     int
	}{
		{"/api/v1/open", "", http.StatusNoContent},
		{"/api/v1/closed", "", http.StatusUnauthorized},
		{"/api/v1/closed", "Bearer nope", http.StatusUnauthorized},
		{"/api/v1/closed", "Bearer s3cret", http.StatusNoContent},
		{"/root", "", http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, c.path, nil)
		if c.auth != "" {
			req.Header.Set("Authorization", c.auth)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != c.status {
			t.Fatalf("%s %q: status = %d, want %d", c.path, c.auth, rec.Code, c.status)
		}
	}
}

func TestProtected_NilPortIsOpen(t *testing.T) {
	t.Parallel()

	mux := chi.NewRouter()
	Protected(phttp.AdaptChi(mux), middleware.TokenPort(""), func(p Router) {
		p.Get("/x", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
}
