// Package module wires the crosspost service and exposes its ports
package module

import (
	"crossposter/internal/adapters/publish"
	"crossposter/internal/core/dispatch"
	"crossposter/internal/modkit"
	"crossposter/internal/modkit/httpkit"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/net/http/bind"
	"crossposter/internal/platform/net/middleware"

	"crossposter/internal/services/crosspost/domain"
	chttp "crossposter/internal/services/crosspost/http"
	"crossposter/internal/services/crosspost/repo"
	"crossposter/internal/services/crosspost/service"
)

// Adapters are the outbound collaborators injected with modkit.WithPorts
// Publishers overrides the configured list when non nil
type Adapters struct {
	Notifier   dispatch.Notifier
	Resolver   dispatch.MediaResolver
	Publishers []dispatch.Publisher
}

// Module implements the crosspost module
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	opts  Options
	svc   *service.Svc
	ports Ports
}

// New constructs the crosspost module
func New(deps modkit.Deps, opts Options, mo ...modkit.Option) (*Module, error) {
	if err := bind.Validate(opts); err != nil {
		return nil, perr.WithOp(err, "crosspost.options")
	}
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("crosspost"),
		modkit.WithPrefix("/api/v1"),
		modkit.WithMiddlewares(middleware.AllowContentType("application/json")),
	}, mo...)...)

	var injected Adapters
	if a, ok := b.Ports.(Adapters); ok {
		injected = a
	}

	pubs := injected.Publishers
	if pubs == nil {
		settings := publish.FromConfig(deps.Cfg)
		settings.Metrics = deps.Metrics
		built, err := publish.Build(opts.Publishers, settings)
		if err != nil {
			return nil, err
		}
		pubs = built
	}

	var ledger domain.LedgerPort = repo.Noop{}
	if opts.Ledger {
		if !deps.HasPG() {
			return nil, perr.WithField(perr.InvalidArgf("dispatch ledger needs postgres; set SERVICE_PGSQL_DBURL"), "ledger")
		}
		ledger = repo.NewLedger(deps.PG, opts.LedgerTimeout)
	}

	svc, err := service.New(deps, service.Config{
		Threshold:     opts.Threshold,
		ExpiryWindow:  opts.ExpiryWindow,
		SweepInterval: opts.SweepInterval,
		Retention:     opts.Retention,
		Tag:           opts.Tag,
		ReasonMax:     opts.ReasonMax,
		Concurrent:    opts.Concurrent,
	}, service.Collaborators{
		Publishers: pubs,
		Resolver:   injected.Resolver,
		Notifier:   injected.Notifier,
		Ledger:     ledger,
	})
	if err != nil {
		return nil, err
	}

	m := &Module{deps: deps, opts: opts, svc: svc}
	m.ports = Ports{Ingest: svc, Query: svc, Worker: svc, Ledger: ledger}

	external := b.Register
	b.Register = func(r httpkit.Router) {
		httpkit.Protected(r, middleware.TokenPort(opts.APIToken), func(pr httpkit.Router) {
			chttp.Register(pr, svc, deps.Now)
		})
		external(r)
	}
	m.built = b
	return m, nil
}

// MountRoutes mounts the module routes under its prefix
func (m *Module) MountRoutes(r httpkit.Router) { m.built.Mount(r) }

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.built.Prefix }

// Destinations lists enabled publishers in report order
func (m *Module) Destinations() []string { return m.svc.Destinations() }

// Tag returns the configured tag marker
func (m *Module) Tag() string { return m.svc.Tag().Tag() }
