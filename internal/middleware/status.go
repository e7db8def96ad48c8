package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// resolveStatus returns the status the client will see. An *echo.HTTPError
// is written after the middleware chain returns, so the recorded response
// status is not final yet in that case.
func resolveStatus(c echo.Context, err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return c.Response().Status
}
