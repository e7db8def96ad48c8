package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"taskboard-go/internal/config"
)

// CORS returns an Echo middleware that answers preflight requests and adds
// CORS headers for the single configured origin. Requests from any other
// origin get no CORS headers.
func CORS(cfg config.CORSConfig) echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.CredentialsAllowed(),
	})
}
