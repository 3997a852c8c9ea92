package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/supernova-store/db"
	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/domain/pricing"
	"github.com/xenking/supernova-store/internal/export"
	"github.com/xenking/supernova-store/internal/handler"
	"github.com/xenking/supernova-store/internal/session"
	"github.com/xenking/supernova-store/internal/storage/file"
	"github.com/xenking/supernova-store/internal/storage/postgres"
	"github.com/xenking/supernova-store/internal/storage/remote"
	"github.com/xenking/supernova-store/pkg/health"
	"github.com/xenking/supernova-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog_source", cfg.Catalog.Source),
	)

	src, closeSource, err := newCatalogSource(ctx, cfg.Catalog)
	if err != nil {
		return errors.Wrap(err, "catalog source")
	}
	defer closeSource()

	rates, err := pricing.NewRateTable(cfg.Tax.Rates, cfg.Tax.Default)
	if err != nil {
		return errors.Wrap(err, "tax rates")
	}

	obs, err := newObserver(lg.Named("session"), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "observer")
	}

	h := handler.NewHandler(handler.HandlerConfig{
		Brand: export.Brand{StoreName: cfg.Store.Name, Footer: cfg.Store.Footer},
	})

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.ReadyWhen(h.Ready)
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, m, cfg, h, healthSvc),
	}

	opts := session.Options{
		Source:   src,
		Rates:    rates,
		PageSize: cfg.Store.PageSize,
	}
	if cfg.Catalog.Fallback {
		opts.Fallback = catalog.DefaultSeed()
	}
	if cfg.Cart.Path != "" {
		opts.Store = file.NewCartStore(cfg.Cart.Path)
	}

	var sess *session.Session
	g, gCtx := errgroup.WithContext(ctx)

	// The API answers 503 until the catalog is loaded.
	g.Go(func() error {
		loadCtx, cancel := context.WithTimeout(gCtx, cfg.Catalog.LoadTimeout)
		defer cancel()

		s, err := session.Open(loadCtx, opts)
		if err != nil {
			if gCtx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "open session")
		}
		s.Subscribe(obs.Observe)
		sess = s
		h.SetSession(s)
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	err = g.Wait()
	if sess != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()
		if cerr := sess.Close(closeCtx); cerr != nil {
			lg.Error("Session close error", zap.Error(cerr))
		}
	}
	return err
}

// newRouter mounts health probes and the API behind the middleware chain.
func newRouter(ctx context.Context, t httpmiddleware.Telemetry, cfg *Config, h *handler.Handler, healthSvc *health.Health) http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Mount("/api", h.Routes())

	return httpmiddleware.Wrap(r,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Content-Disposition"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.Instrument("supernova", t),
	)
}

// newCatalogSource builds the configured catalog source. The returned func
// releases resources held by the source.
func newCatalogSource(ctx context.Context, cfg CatalogConfig) (catalog.Source, func(), error) {
	noop := func() {}
	switch cfg.Source {
	case SourceEmbedded:
		return &file.DocumentSource{Name: "products.json", Data: db.SeedProducts}, noop, nil
	case SourceFile:
		return file.NewCatalogSource(cfg.Path), noop, nil
	case SourceHTTP:
		return remote.NewCatalogSource(cfg.URL), noop, nil
	case SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewCatalogSource(pool), pool.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown catalog source %q", cfg.Source)
	}
}
