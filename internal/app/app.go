// Package app wires the API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/auth"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/domain/coupon"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/handler"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/internal/repository"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/pkg/health"
	"github.com/Mashhood-Rehman/urlaubstracker-clone-sub001/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	couponRepo := repository.NewCouponRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	opts := []coupon.Option{
		coupon.WithMeterProvider(m.MeterProvider()),
		coupon.WithTracerProvider(m.TracerProvider()),
	}
	if cfg.Coupons.StrictEligibility {
		opts = append(opts, coupon.WithStrictEligibility(inventoryRepo))
	}
	couponSvc, err := coupon.NewService(couponRepo, opts...)
	if err != nil {
		return errors.Wrap(err, "create coupon service")
	}

	hcfg := handler.Config{
		Auth: auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper)),
		Throttle: httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.ValidateLimit.Max,
			Window: cfg.ValidateLimit.Window,
		}),
	}

	root := chi.NewRouter()
	root.Get("/livez", healthSvc.LiveEndpoint)
	root.Get("/readyz", healthSvc.ReadyEndpoint)
	root.Mount("/", handler.Router(handler.New(couponSvc, hcfg), hcfg))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(root,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			func(next http.Handler) http.Handler {
				return otelhttp.NewHandler(next, "deals-api",
					otelhttp.WithTracerProvider(m.TracerProvider()),
					otelhttp.WithMeterProvider(m.MeterProvider()),
					// Renamed to the route pattern by the router.
					otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
						return r.Method
					}),
				)
			},
		),
	}
	healthSvc.SetReady(true)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
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
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
