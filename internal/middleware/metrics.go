package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"taskboard-go/internal/metrics"
)

// MetricsMiddleware counts and times every inbound request, preflights
// included, and tracks how many are in flight. The path label is bounded to
// the prefixes m was built with.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			start := time.Now()

			err := next(c)

			elapsed := time.Since(start).Seconds()
			m.RequestsInFlight.Dec()

			req := c.Request()
			labels := []string{
				metrics.NormalizeMethod(req.Method),
				strconv.Itoa(resolveStatus(c, err)),
				m.NormalizePath(req.URL.Path),
			}
			m.RequestsTotal.WithLabelValues(labels...).Inc()
			m.RequestDuration.WithLabelValues(labels...).Observe(elapsed)

			return err
		}
	}
}
