package module

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/modkit"
	"crossposter/internal/modkit/module"
	"crossposter/internal/platform/config"
	perr "crossposter/internal/platform/errors"
	phttp "crossposter/internal/platform/net/http"
	kit "crossposter/internal/platform/testkit"
	ptime "crossposter/internal/platform/time"
	"crossposter/internal/services/crosspost/domain"

	"github.com/go-chi/chi/v5"
)

func baseOptions() Options {
	return Options{
		Threshold:     2,
		ExpiryWindow:  time.Hour,
		SweepInterval: time.Minute,
		Retention:     24 * time.Hour,
		ReasonMax:     100,
		Tag:           "#topost",
		Concurrent:    true,
	}
}

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) Notify(_ context.Context, _, text string) error {
	n.mu.Lock()
	n.msgs = append(n.msgs, text)
	n.mu.Unlock()
	return nil
}

func newTestModule(t *testing.T, opts Options) (*Module, *chi.Mux, *notes) {
	t.Helper()
	n := &notes{}
	clk := ptime.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	pub := dispatch.PublisherFunc{Dest: "dryrun", Fn: func(context.Context, string, *dispatch.Payload) error { return nil }}
	m, err := New(modkit.Deps{Cfg: config.New().Prefix("XPOST_TEST_"), Clock: clk.Now}, opts,
		modkit.WithPorts(Adapters{Notifier: n, Publishers: []dispatch.Publisher{pub}}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))
	return m, mux, n
}

func do(t *testing.T, mux http.Handler, method, path, body, token string) (int, phttp.Envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec.Code, env
}

func TestModule_Flow(t *testing.T) {
	m, mux, n := newTestModule(t, baseOptions())
	kit.MustEqual(t, m.Name(), "crosspost", "name")
	kit.MustEqual(t, m.Prefix(), "/api/v1", "prefix")
	kit.MustEqual(t, m.Tag(), "#topost", "tag")

	code, env := do(t, mux, http.MethodPost, "/api/v1/candidates",
		`{"id":"100:5","prompt_id":"100:6","conversation_id":"100","text":"launch day #topost"}`, "")
	if code != http.StatusCreated {
		t.Fatalf("register status = %d (%+v)", code, env)
	}

	code, env = do(t, mux, http.MethodPost, "/api/v1/approvals", `{"prompt_id":"100:6","approver_id":"a"}`, "")
	if code != http.StatusOK {
		t.Fatalf("approve status = %d", code)
	}
	data := env.Data.(map[string]any)
	kit.MustEqual(t, data["result"].(string), "still_pending", "result")
	kit.MustEqual(t, data["remaining"].(float64), 1.0, "remaining")

	_, env = do(t, mux, http.MethodPost, "/api/v1/approvals", `{"prompt_id":"100:6","approver_id":"b"}`, "")
	data = env.Data.(map[string]any)
	kit.MustEqual(t, data["result"].(string), "ready_to_publish", "result")
	if data["report"] == nil {
		t.Fatalf("ready result should carry the report")
	}
	if len(n.msgs) != 2 || !strings.Contains(n.msgs[1], "✅ Dryrun: Successfully posted") {
		t.Fatalf("notes = %q", n.msgs)
	}

	code, env = do(t, mux, http.MethodGet, "/api/v1/posts/100:5", "", "")
	if code != http.StatusOK || env.Data.(map[string]any)["state"] != "published" {
		t.Fatalf("get = %d %+v", code, env)
	}
	code, env = do(t, mux, http.MethodGet, "/api/v1/posts?state=published", "", "")
	if code != http.StatusOK || len(env.Data.([]any)) != 1 {
		t.Fatalf("list = %d %+v", code, env)
	}
}

func TestModule_Errors(t *testing.T) {
	_, mux, _ := newTestModule(t, baseOptions())
	cases := []struct {
		method, path, body string
		status             int
		code               perr.ErrorCode
	}{
		{http.MethodPost, "/api/v1/approvals", `{"prompt_id":"nope","approver_id":"a"}`, http.StatusNotFound, perr.ErrorCodeNotFound},
		{http.MethodPost, "/api/v1/approvals", `{"prompt_id":"nope"}`, http.StatusBadRequest, perr.ErrorCodeValidation},
		{http.MethodPost, "/api/v1/approvals", `{"prompt_id":"100:6","approver_id":"a","at":"2000-01-01T00:00:00Z"}`, http.StatusBadRequest, perr.ErrorCodeJSON},
		{http.MethodPost, "/api/v1/candidates", `{"id":"x"}`, http.StatusBadRequest, perr.ErrorCodeValidation},
		{http.MethodGet, "/api/v1/posts/missing", "", http.StatusNotFound, perr.ErrorCodeNotFound},
		{http.MethodGet, "/api/v1/posts?limit=-1", "", http.StatusUnprocessableEntity, perr.ErrorCodeInvalidArgument},
		{http.MethodGet, "/api/v1/posts?state=lost", "", http.StatusUnprocessableEntity, perr.ErrorCodeInvalidArgument},
		{http.MethodGet, "/api/v1/posts/x/dispatches", "", http.StatusServiceUnavailable, perr.ErrorCodeUnavailable},
	}
	for _, c := range cases {
		code, env := do(t, mux, c.method, c.path, c.body, "")
		if code != c.status || env.Code != c.code {
			t.Fatalf("%s %s: got %d/%v, want %d/%v (%s)", c.method, c.path, code, env.Code, c.status, c.code, env.Error)
		}
	}
}

func TestModule_APIToken(t *testing.T) {
	opts := baseOptions()
	opts.APIToken = "s3cret"
	_, mux, _ := newTestModule(t, opts)

	if code, _ := do(t, mux, http.MethodGet, "/api/v1/posts", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", code)
	}
	if code, _ := do(t, mux, http.MethodGet, "/api/v1/posts", "", "s3cret"); code != http.StatusOK {
		t.Fatalf("with token status = %d", code)
	}
}

func TestModule_Ports(t *testing.T) {
	m, _, _ := newTestModule(t, baseOptions())
	w := module.MustPortsOf[domain.WorkerPort](m)
	if w == nil {
		t.Fatalf("worker port missing")
	}
	p := m.Ports().(Ports)
	if p.Ingest == nil || p.Query == nil || p.Ledger == nil {
		t.Fatalf("ports = %+v", p)
	}
}

func TestNew_Rejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Options)
	}{
		{"threshold", func(o *Options) { o.Threshold = 0 }},
		{"window", func(o *Options) { o.ExpiryWindow = 0 }},
		{"reason max", func(o *Options) { o.ReasonMax = 0 }},
		{"tag", func(o *Options) { o.Tag = "" }},
		{"ledger without pg", func(o *Options) { o.Ledger = true }},
		{"unknown publisher", func(o *Options) { o.Publishers = []string{"myspace"} }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := baseOptions()
			c.mut(&o)
			if _, err := New(modkit.Deps{Cfg: config.New().Prefix("XPOST_TEST_")}, o); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNew_BuildsConfiguredPublishers(t *testing.T) {
	o := baseOptions()
	o.Publishers = []string{"dryrun"}
	m, err := New(modkit.Deps{Cfg: config.New().Prefix("XPOST_TEST_")}, o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d := m.Destinations(); len(d) != 1 || d[0] != "dryrun" {
		t.Fatalf("destinations = %v", d)
	}
}

func TestFromConfig(t *testing.T) {
	kit.Serial(t)
	t.Setenv("XPOST_CROSSPOST_APPROVAL_THRESHOLD", "3")
	t.Setenv("XPOST_CROSSPOST_EXPIRY_WINDOW", "30m")
	t.Setenv("XPOST_CROSSPOST_PUBLISHERS", "twitter, bluesky")
	t.Setenv("XPOST_CROSSPOST_CONCURRENT_FANOUT", "false")

	o := FromConfig(config.New().Prefix("XPOST_"))
	kit.MustEqual(t, o.Threshold, 3, "threshold")
	kit.MustEqual(t, o.ExpiryWindow, 30*time.Minute, "window")
	kit.MustEqual(t, o.SweepInterval, 5*time.Minute, "interval")
	kit.MustEqual(t, o.Retention, 24*time.Hour, "retention")
	kit.MustEqual(t, o.ReasonMax, 100, "reason max")
	kit.MustEqual(t, o.Tag, "#topost", "tag")
	kit.MustEqual(t, o.Concurrent, false, "concurrent")
	kit.MustEqual(t, o.Ledger, false, "ledger")
	if len(o.Publishers) != 2 || o.Publishers[0] != "twitter" || o.Publishers[1] != "bluesky" {
		t.Fatalf("publishers = %q", o.Publishers)
	}
}

func TestModule_RejectsNonJSONBodies(t *testing.T) {
	_, mux, _ := newTestModule(t, baseOptions())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates", strings.NewReader("id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	kit.MustEqual(t, rec.Code, http.StatusUnsupportedMediaType, "status")
}
