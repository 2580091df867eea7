package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths that bypass bearer authentication.
var publicPaths = map[string]bool{
	"/health":              true,
	"/health/db":           true,
	"/metrics":             true,
	"/api/v1/auth/login":   true,
	"/api/v1/auth/refresh": true,
	"/api/v1/auth/logout":  true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
