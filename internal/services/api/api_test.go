package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/modkit"
	"crossposter/internal/platform/config"
	"crossposter/internal/platform/metrics"
	phttp "crossposter/internal/platform/net/http"
	kit "crossposter/internal/platform/testkit"
	"crossposter/internal/services/crosspost/domain"
	cpmod "crossposter/internal/services/crosspost/module"

	"github.com/go-chi/chi/v5"
)

func testOptions() Options {
	pub := dispatch.PublisherFunc{Dest: "DryRun", Fn: func(context.Context, string, *dispatch.Payload) error { return nil }}
	return Options{
		Deps: modkit.Deps{Cfg: config.New().Prefix("XPOST_API_TEST_"), Metrics: metrics.New()},
		Crosspost: cpmod.Options{
			Threshold:     1,
			ExpiryWindow:  time.Hour,
			SweepInterval: time.Minute,
			ReasonMax:     100,
			Tag:           "#topost",
		},
		Adapters:      cpmod.Adapters{Publishers: []dispatch.Publisher{pub}},
		Ingestion:     "webhook",
		EnableSwagger: true,
	}
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMount_Surface(t *testing.T) {
	mux := chi.NewRouter()
	a, err := Mount(phttp.AdaptChi(mux), testOptions())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	kit.MustEqual(t, a.Crosspost.Name(), "crosspost", "module")
	if a.Ports.Ingest == nil || a.Ports.Worker == nil || a.Ports.Query == nil {
		t.Fatalf("ports not exposed: %+v", a.Ports)
	}

	cases := []struct {
		path   string
		status int
		want   string
	}{
		{"/health", http.StatusOK, `"status":"healthy"`},
		{"/meta/service", http.StatusOK, `"ingestion":"webhook"`},
		{"/meta/service", http.StatusOK, `"destinations":["DryRun"]`},
		{"/docs/openapi.json", http.StatusOK, `"/api/v1/approvals"`},
		{"/api/v1/posts", http.StatusOK, `"status_code":200`},
	}
	for _, c := range cases {
		rec := serve(t, mux, http.MethodGet, c.path, "")
		kit.MustEqual(t, rec.Code, c.status, c.path)
		kit.MustContain(t, rec.Body.String(), c.want)
	}
	rec := serve(t, mux, http.MethodGet, "/debug/pprof/", "")
	kit.MustEqual(t, rec.Code, http.StatusNotFound, "profiler off")
}

func TestMount_PublishesThroughPorts(t *testing.T) {
	mux := chi.NewRouter()
	a, err := Mount(phttp.AdaptChi(mux), testOptions())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	_, err = a.Ports.Ingest.RegisterCandidate(context.Background(), domain.Candidate{
		ID: "1:1", PromptID: "1:2", ConversationID: "1", Text: "hello #topost",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec := serve(t, mux, http.MethodPost, "/api/v1/approvals", `{"prompt_id":"1:2","approver_id":"u1"}`)
	kit.MustEqual(t, rec.Code, http.StatusOK, "approve")
	var env struct {
		Data struct {
			Result string `json:"result"`
		} `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	kit.MustEqual(t, env.Data.Result, "ready_to_publish", "result")

	metricsRec := serve(t, mux, http.MethodGet, "/metrics", "")
	kit.MustContain(t, metricsRec.Body.String(), "crossposter_")
}

func TestMount_RejectsBadOptions(t *testing.T) {
	o := testOptions()
	o.Crosspost.Threshold = 0
	if _, err := Mount(phttp.AdaptChi(chi.NewRouter()), o); err == nil {
		t.Fatalf("want error for zero threshold")
	}
}

func TestOpenAPI_IsJSON(t *testing.T) {
	var doc map[string]any
	if err := json.Unmarshal(OpenAPI, &doc); err != nil {
		t.Fatalf("openapi: %v", err)
	}
	kit.MustEqual(t, doc["openapi"].(string), "3.0.3", "version")
}
