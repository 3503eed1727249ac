package http

import (
	"context"
	stdhttp "net/http"
	"sort"
	"sync"
	"time"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckResult is the outcome of one named check
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) CheckResult

// HealthReport is the body of GET /health
type HealthReport struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Checks  map[string]CheckResult `json:"checks"`
}

// Health aggregates named checks into one status
type Health struct {
	service string
	version string

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

// NewHealth builds an empty checker
func NewHealth(service, version string) *Health {
	return &Health{service: service, version: version, checks: map[string]HealthCheck{}}
}

// Add registers or replaces the check called name
func (h *Health) Add(name string, c HealthCheck) {
	h.mu.Lock()
	h.checks[name] = c
	h.mu.Unlock()
}

// Check runs every check; any unhealthy makes the report unhealthy, any degraded makes it degraded
func (h *Health) Check(ctx context.Context) HealthReport {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for n := range h.checks {
		names = append(names, n)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	rep := HealthReport{Status: StatusHealthy, Service: h.service, Version: h.version, Checks: map[string]CheckResult{}}
	for _, n := range names {
		h.mu.RLock()
		c := h.checks[n]
		h.mu.RUnlock()

		start := time.Now()
		res := c(ctx)
		if res.Latency == "" {
			res.Latency = time.Since(start).String()
		}
		rep.Checks[n] = res
		switch res.Status {
		case StatusUnhealthy:
			rep.Status = StatusUnhealthy
		case StatusDegraded:
			if rep.Status == StatusHealthy {
				rep.Status = StatusDegraded
			}
		}
	}
	return rep
}

// Handler serves the report; unhealthy answers 503
func (h *Health) Handler() Handler {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		rep := h.Check(ctx)
		status := stdhttp.StatusOK
		if rep.Status == StatusUnhealthy {
			status = stdhttp.StatusServiceUnavailable
		}
		JSON(w, status, rep)
	}
}
