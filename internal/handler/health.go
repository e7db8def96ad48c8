package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskboard-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Health reports that the proxy is up and where it forwards to.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Proxy server is running",
		"target": h.cfg.Upstream.BaseURL,
	})
}

// Status returns the effective proxy settings.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":         "ok",
		"version":        string(h.version),
		"target":         h.cfg.Upstream.BaseURL,
		"path_prefix":    h.cfg.Upstream.PathPrefix,
		"allowed_origin": h.cfg.Proxy.CORS.AllowedOrigin,
	})
}
