package handler

import (
	"github.com/labstack/echo/v4"

	"taskboard-go/internal/config"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler) {
	e.GET(config.HealthPath, health.Health)
	e.GET(config.StatusPath, health.Status)

	prefix := cfg.Upstream.PathPrefix
	if prefix == "" {
		prefix = config.DefaultPathPrefix
	}
	e.Any(prefix, proxy.Handle)
	e.Any(prefix+"/*", proxy.Handle)
}
