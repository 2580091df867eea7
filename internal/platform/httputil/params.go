// Package httputil holds the request decoding helpers shared by the echo
// handlers.
package httputil

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// IDParam parses the named path parameter as a positive int64 id.
func IDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// OptionalIDQuery parses an optional positive int64 query parameter. It
// returns nil when the parameter is absent.
func OptionalIDQuery(c echo.Context, name string) (*int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

// BindAndValidate decodes the request body into dst and runs the echo
// validator over it when one is registered.
func BindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}
