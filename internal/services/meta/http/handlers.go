// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"crossposter/internal/core/version"
	"crossposter/internal/modkit/httpkit"
	"crossposter/internal/modkit/repokit"
)

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Now         func() time.Time
	// PG is nil when the ledger is off; the ready check then reports skipped
	PG           any
	Tag          string
	Destinations []string
	Ingestion    string
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{deps: d}

	r.Get("/ready", httpkit.Call(h.ready))
	r.Get("/version", httpkit.Call(h.version))
	r.Get("/service", httpkit.Call(h.service))
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"   example:"pg"`
	Status string `json:"status" example:"ok"` // ok fail skipped unknown
	Error  string `json:"error,omitempty" example:"pg ping failed: dial tcp 127.0.0.1:5432: connect: connection refused"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-10-18T13:05:00Z"`
}

// ServiceResponse describes what this instance does
type ServiceResponse struct {
	Name         string   `json:"name"         example:"crossposter"`
	Started      string   `json:"started"      example:"2026-10-18T13:00:00Z"`
	Uptime       int64    `json:"uptime"       example:"300"`
	Tag          string   `json:"tag"          example:"#topost"`
	Destinations []string `json:"destinations" example:"Bluesky,Twitter"`
	Ingestion    string   `json:"ingestion"    example:"polling"`
}

// swagger:route GET /meta/ready Meta metaReady
// @Summary Readiness probe with dependency checks
// @Tags Meta
// @Produce json
// @Success 200 type ReadyResponse ok
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	pg := ReadyCheck{Name: "pg", Status: "skipped"}
	switch p := h.deps.PG.(type) {
	case nil:
	case repokit.Pinger:
		pg.Status = "ok"
		if err := repokit.Ping(ctx, "pg", p, 0); err != nil {
			pg.Status, pg.Error = "fail", err.Error()
		}
	default:
		pg.Status = "unknown"
	}

	overall := "ok"
	if pg.Status == "fail" {
		overall = "fail"
	}
	return ReadyResponse{
		Status: overall,
		Checks: []ReadyCheck{pg},
		Now:    h.deps.Now().UTC().Format(time.RFC3339),
	}, nil
}

// swagger:route GET /meta/version Meta metaVersion
// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 type version.BuildInfo ok
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

// swagger:route GET /meta/service Meta metaService
// @Summary Service info, uptime and the enabled destinations
// @Tags Meta
// @Produce json
// @Success 200 type ServiceResponse ok
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	uptime := h.deps.Now().Sub(h.deps.StartedAt)
	return ServiceResponse{
		Name:         h.deps.ServiceName,
		Started:      h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:       int64(uptime / time.Second),
		Tag:          h.deps.Tag,
		Destinations: h.deps.Destinations,
		Ingestion:    h.deps.Ingestion,
	}, nil
}
