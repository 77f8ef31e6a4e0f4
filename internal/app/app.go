// Package app wires the POS API together: configuration, storage, domain
// services, HTTP transport, and lifecycle.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/vendaria/pos-api/internal/domain/budget"
	"github.com/vendaria/pos-api/internal/domain/discount"
	"github.com/vendaria/pos-api/internal/domain/operator"
	"github.com/vendaria/pos-api/internal/domain/sale"
	"github.com/vendaria/pos-api/internal/handler"
	"github.com/vendaria/pos-api/internal/obs"
	"github.com/vendaria/pos-api/internal/storage/postgres"
	"github.com/vendaria/pos-api/pkg/health"
	"github.com/vendaria/pos-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	budgetRepo := postgres.NewBudgetRepository(pool)
	operatorRepo := postgres.NewOperatorRepository(pool)

	// Business metrics.
	metrics, err := obs.NewMetrics(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}

	// Domain services: the commit pipeline shared by checkout and budget
	// conversion, with metric hooks on its stages.
	policy := discount.NewPolicy(operator.Limits{Repo: operatorRepo})
	writer := sale.NewWriter(saleRepo, catalogRepo)

	reconciler := sale.NewReconciler(catalogRepo)
	reconciler.OnClamp = func(ctx context.Context, _ string) { metrics.StockClamped(ctx) }
	reconciler.OnIssue = func(ctx context.Context, _ sale.StockIssue) { metrics.ReconcileFailed(ctx) }

	pipeline := sale.NewPipeline(policy, writer, reconciler)
	pipeline.OnCommit = func(ctx context.Context, s *sale.Sale) {
		metrics.SaleCommitted(ctx)
		if s.SourceBudgetID != "" {
			metrics.BudgetConverted(ctx)
		}
	}

	converter := budget.NewConverter(budgetRepo, pipeline)

	// HTTP handlers.
	h := handler.NewHandler(catalogRepo, saleRepo, pipeline, budgetRepo, converter)
	auth := handler.APIKeyAuth(operatorRepo, []byte(cfg.APIKeyPepper))

	api := otelhttp.NewHandler(h.Routes(auth), "pos-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	// Mux: health endpoints stay outside auth and instrumentation.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", api))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
