package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth_Aggregation(t *testing.T) {
	h := NewHealth("crossposter", "test")
	h.Add("registry", func(context.Context) CheckResult { return CheckResult{Status: StatusHealthy} })

	if rep := h.Check(context.Background()); rep.Status != StatusHealthy || len(rep.Checks) != 1 {
		t.Fatalf("healthy report = %+v", rep)
	}

	h.Add("ledger", func(context.Context) CheckResult { return CheckResult{Status: StatusDegraded, Message: "slow"} })
	if rep := h.Check(context.Background()); rep.Status != StatusDegraded {
		t.Fatalf("expected degraded, got %s", rep.Status)
	}

	h.Add("telegram", func(context.Context) CheckResult { return CheckResult{Status: StatusUnhealthy} })
	rr := httptest.NewRecorder()
	h.Handler()(rr, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))
	if rr.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d", rr.Code)
	}
	var rep HealthReport
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Status != StatusUnhealthy || rep.Checks["ledger"].Message != "slow" || rep.Checks["registry"].Latency == "" {
		t.Fatalf("report = %+v", rep)
	}
}
