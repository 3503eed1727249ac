// Package api assembles the HTTP surface and the crosspost modules
package api

import (
	"context"
	_ "embed"
	"time"

	"crossposter/internal/core/version"
	"crossposter/internal/modkit"
	"crossposter/internal/modkit/module"
	"crossposter/internal/modkit/repokit"
	phttp "crossposter/internal/platform/net/http"

	cpmod "crossposter/internal/services/crosspost/module"
	metamod "crossposter/internal/services/meta/module"
)

// OpenAPI is the document served at /docs/openapi.json
//
//go:embed openapi.json
var OpenAPI []byte

// Options are the API options
type Options struct {
	Deps      modkit.Deps
	Crosspost cpmod.Options
	// Adapters are handed to the crosspost module as injected ports
	Adapters       cpmod.Adapters
	Ingestion      string
	EnableSwagger  bool
	EnableProfiler bool
}

// API is the mounted surface plus the ports the process runs on
type API struct {
	Crosspost *cpmod.Module
	Meta      *metamod.Module
	Ports     cpmod.Ports
	Health    *phttp.Health
}

// Mount builds every module and mounts it onto r
func Mount(r phttp.Router, opt Options) (*API, error) {
	deps := opt.Deps

	cp, err := cpmod.New(deps, opt.Crosspost, modkit.WithPorts(opt.Adapters))
	if err != nil {
		return nil, err
	}
	meta := metamod.New(deps, metamod.Info{
		Tag:          cp.Tag(),
		Destinations: cp.Destinations(),
		Ingestion:    opt.Ingestion,
	})

	health := phttp.NewHealth(version.Info().Service, version.Info().Version)
	if p, ok := deps.PG.(repokit.Pinger); ok && deps.HasPG() {
		health.Add("pg", func(ctx context.Context) phttp.CheckResult {
			if err := repokit.Ping(ctx, "pg", p, 2*time.Second); err != nil {
				return phttp.CheckResult{Status: phttp.StatusUnhealthy, Message: err.Error()}
			}
			return phttp.CheckResult{Status: phttp.StatusHealthy}
		})
	}
	r.Get("/health", health.Handler())
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}
	phttp.MountSwagger(r, opt.EnableSwagger, OpenAPI)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	for _, m := range []module.Module{meta, cp} {
		m.MountRoutes(r)
	}

	return &API{
		Crosspost: cp,
		Meta:      meta,
		Ports:     module.MustPortsOf[cpmod.Ports](cp),
		Health:    health,
	}, nil
}
