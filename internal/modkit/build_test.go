package modkit

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"crossposter/internal/modkit/httpkit"
	phttp "crossposter/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	b := Build()
	if b.Name != "" || b.Ports != nil || len(b.Mw) != 0 {
		t.Fatalf("unexpected defaults: %+v", b)
	}
	if b.Prefix != "/" {
		t.Fatalf("default Prefix = %q, want /", b.Prefix)
	}
	var r httpkit.Router
	b.Register(r)
}

func TestBuild_WithOptionsAndCopySemantics(t *testing.T) {
	t.Parallel()

	fnPtr := func(f func(http.Handler) http.Handler) uintptr {
		return reflect.ValueOf(f).Pointer()
	}
	mwA := func(next http.Handler) http.Handler { return next }
	mwB := func(next http.Handler) http.Handler { return next }
	mid := []func(http.Handler) http.Handler{mwA, mwB}

	type ports struct{ X int }
	b := Build(
		WithName("crosspost"),
		WithPrefix("/api/v1"),
		WithMiddlewares(mid...),
		WithPorts(ports{X: 7}),
	)
	if b.Name != "crosspost" || b.Prefix != "/api/v1" {
		t.Fatalf("name/prefix = %q %q", b.Name, b.Prefix)
	}
	if got, ok := b.Ports.(ports); !ok || got.X != 7 {
		t.Fatalf("Ports mismatch after Build")
	}

	mid[0] = func(next http.Handler) http.Handler { return next }
	if fnPtr(b.Mw[0]) != fnPtr(mwA) || fnPtr(b.Mw[1]) != fnPtr(mwB) {
		t.Fatalf("Built.Mw should not alias the caller slice")
	}
}

func TestBuilt_Mount(t *testing.T) {
	t.Parallel()

	tagged := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Module", "crosspost")
			next.ServeHTTP(w, r)
		})
	}
	b := Build(
		WithPrefix("/api/v1"),
		WithMiddlewares(tagged),
		WithRegister(func(r phttp.Router) {
			r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
		}),
	)

	mux := chi.NewRouter()
	b.Mount(phttp.AdaptChi(mux))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
	if rec.Header().Get("X-Module") != "crosspost" {
		t.Fatalf("module middleware did not run")
	}
}
