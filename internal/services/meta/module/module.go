// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"crossposter/internal/core/version"
	"crossposter/internal/modkit"
	"crossposter/internal/modkit/httpkit"
	str "crossposter/internal/platform/strings"

	metahttp "crossposter/internal/services/meta/http"
)

// Info is what the service endpoint reports beyond build data
type Info struct {
	Tag          string
	Destinations []string
	Ingestion    string
}

// Module implements the modkit.Module interface
type Module struct {
	built modkit.Built
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, info Info, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	started := deps.Now()
	var pg any
	if deps.HasPG() {
		pg = deps.PG
	}
	external := b.Register
	b.Register = func(r httpkit.Router) {
		metahttp.Register(r, metahttp.Deps{
			ServiceName:  version.Info().Service,
			StartedAt:    started,
			Now:          deps.Now,
			PG:           pg,
			Tag:          info.Tag,
			Destinations: info.Destinations,
			Ingestion:    info.Ingestion,
		})
		external(r)
	}
	return &Module{built: b}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) { m.built.Mount(r) }

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.built.Name, "meta") }

// Prefix returns the mount prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.built.Prefix) }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
