package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"crossposter/internal/adapters/telegram"
	"crossposter/internal/modkit"
	"crossposter/internal/modkit/repokit"
	"crossposter/internal/platform/config"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/metrics"
	phttp "crossposter/internal/platform/net/http"
	"crossposter/internal/platform/net/middleware"
	"crossposter/internal/platform/store"
	ptime "crossposter/internal/platform/time"
	"crossposter/internal/services/api"
	cpmod "crossposter/internal/services/crosspost/module"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the expiry sweeper and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	log := logger.Named("main")
	s, err := loadSettings(root)
	if err != nil {
		return err
	}

	m := metrics.New()
	deps := modkit.Deps{Log: *log, Cfg: root, Metrics: m, Clock: ptime.System}

	// ledger store (SERVICE_PGSQL_*) only when recording is on
	if s.Crosspost.Ledger {
		st, err := store.Open(ctx,
			store.Config{PG: store.PGFromConfig(root.Prefix("SERVICE_PGSQL_"), true)},
			store.WithLogger(*logger.Named("store")),
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close store")
			}
		}()
		if p, ok := st.PG.(repokit.Pinger); ok {
			if err := repokit.Ping(ctx, "pg", p, 5*time.Second); err != nil {
				return err
			}
		}
		deps.PG = st.PG
	}

	tg := telegram.NewClient(s.Telegram, m)

	srv := phttp.NewServer(root.Prefix("CORE_"), func(mux *chi.Mux) {
		mux.Use(middleware.Defaults(middleware.AccessLogOptions{
			Slow: time.Second,
			Skip: []string{"/health", "/metrics"},
		})...)
		mux.Use(m.Middleware)
		if len(s.CORSOrigins) > 0 {
			mux.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: s.CORSOrigins}))
		}
		if s.RequestTimeout > 0 {
			mux.Use(middleware.Timeout(s.RequestTimeout))
		}
	})

	a, err := api.Mount(srv.Router(), api.Options{
		Deps:      deps,
		Crosspost: s.Crosspost,
		Adapters: cpmod.Adapters{
			Notifier: telegram.NewNotifier(tg),
			Resolver: telegram.NewResolver(tg, m),
		},
		Ingestion:      s.Telegram.Mode,
		EnableSwagger:  s.Swagger,
		EnableProfiler: s.Profiler,
	})
	if err != nil {
		return err
	}
	if s.Crosspost.Ledger {
		if err := a.Ports.Ledger.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	bot, err := telegram.NewBot(tg, a.Ports.Ingest, a.Crosspost.Tag())
	if err != nil {
		return err
	}

	var wh *telegram.Webhook
	if s.Telegram.Mode == telegram.ModeWebhook {
		// in flight updates outlive shutdown; wh.Wait below drains them
		wh = telegram.NewWebhook(context.WithoutCancel(ctx), bot, s.Telegram.WebhookSecret)
		srv.Router().Post("/telegram/webhook", wh.ServeHTTP)
		if err := tg.SetWebhook(ctx, s.Telegram.WebhookURL, s.Telegram.WebhookSecret); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Ports.Worker.Run(gctx) })
	if wh == nil {
		p := telegram.NewPoller(tg, bot, s.Telegram.PollTimeout, s.Telegram.Workers)
		g.Go(func() error { return p.Run(gctx) })
	}
	g.Go(func() error { return srv.Run(gctx) })

	log.Info().
		Str("tag", a.Crosspost.Tag()).
		Strs("destinations", a.Crosspost.Destinations()).
		Str("ingestion", s.Telegram.Mode).
		Int("threshold", s.Crosspost.Threshold).
		Dur("window", s.Crosspost.ExpiryWindow).
		Bool("ledger", s.Crosspost.Ledger).
		Msg("crossposter started")

	err = g.Wait()
	if wh != nil {
		wh.Wait()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("crossposter stopped")
	return nil
}
