package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"taskboard-go/internal/client"
	"taskboard-go/internal/config"
	"taskboard-go/internal/handler"
	"taskboard-go/internal/metrics"
	"taskboard-go/internal/middleware"
	"taskboard-go/internal/service"
)

type proxyCmd struct{}

func (proxyCmd) Run(g *config.CLI) error {
	app := fx.New(
		fx.Supply(g),
		fx.Provide(
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			newMetrics,
			newEcho,
			client.NewUpstreamClient,
			service.NewProxyService,
			handler.NewProxyHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, registerMetrics, warnConfigPermissions, startServer),
	)
	app.Run()
	return app.Err()
}

func newMetrics(cfg *config.Config) *metrics.Metrics {
	prefixes := []string{cfg.Upstream.PathPrefix, config.HealthPath, config.StatusPath}
	if cfg.Metrics.Path != "" {
		prefixes = append(prefixes, cfg.Metrics.Path)
	}
	return metrics.New(prefixes...)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 30 * time.Second
	// Streamed upstream responses may run long; the upstream client timeout
	// bounds them instead.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger.With("component", "http")))
	if cfg.Metrics.Enabled {
		// Ahead of CORS so answered preflights are counted too.
		e.Use(middleware.MetricsMiddleware(m))
	}
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Proxy.BodyMaxBytes)))
	e.Use(middleware.CORS(cfg.Proxy.CORS))

	if cfg.Proxy.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Proxy.RateLimit.RequestsPerSecond))
		logger.Info("rate limiter enabled", "rps", cfg.Proxy.RateLimit.RequestsPerSecond)
	}

	return e
}

func registerMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Proxy.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("proxy server running",
				"addr", addr,
				"target", cfg.Upstream.BaseURL,
				"path_prefix", cfg.Upstream.PathPrefix,
				"allowed_origin", cfg.Proxy.CORS.AllowedOrigin,
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
