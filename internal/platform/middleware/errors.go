package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// ErrorBody is the JSON document written for every failed request.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler maps service errors and echo HTTP errors to JSON responses.
// Store failures are logged with their cause and answered with an opaque
// message.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := describeError(err)
		body.RequestID = requestID(c)

		if status >= http.StatusInternalServerError {
			evt := logger.Error().Err(err).
				Str("request_id", body.RequestID).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path)
			var ae *apperr.Error
			if errors.As(err, &ae) {
				evt = evt.Str("op", ae.Op)
			}
			evt.Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Str("request_id", body.RequestID).Msg("writing error response")
		}
	}
}

func describeError(err error) (int, ErrorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := httpErrorMessage(he)
		return he.Code, ErrorBody{Error: statusCode(he.Code), Message: msg}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorBody{Error: "timeout", Message: "request timed out"}
	}

	kind := apperr.KindOf(err)
	return kind.Status(), ErrorBody{Error: kind.String(), Message: apperr.PublicMessage(err)}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}

// statusCode turns an HTTP status into a snake_case error code, for example
// 413 -> "request_entity_too_large".
func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.KindValidation.String()
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized.String()
	case http.StatusForbidden:
		return apperr.KindForbidden.String()
	case http.StatusNotFound:
		return apperr.KindNotFound.String()
	}
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
