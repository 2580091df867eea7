package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
)

// auditedResources are the /api/v1 collections holding patient data.
var auditedResources = map[string]bool{
	"patients":     true,
	"appointments": true,
	"examinations": true,
	"doctors":      true,
	"users":        true,
}

// Audit logs who touched which clinical record. One "record_access" event is
// written per request to an audited resource, after the handler has run.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource, id := splitResourcePath(req.URL.Path)
			if !auditedResources[resource] {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status, _ = describeError(err)
			}

			evt := logger.Info().
				Str("type", "audit").
				Str("request_id", requestID(c)).
				Str("resource", resource).
				Str("resource_id", id).
				Str("action", methodToAction(req.Method, id)).
				Str("remote_ip", c.RealIP()).
				Int("status", status)
			if actor := auth.ActorFromContext(req.Context()); actor != nil {
				evt = evt.Int64("user_id", actor.UserID()).Str("role", string(actor.Role()))
			}
			evt.Msg("record_access")

			return err
		}
	}
}

// splitResourcePath returns the collection and id segments of an /api/v1 path.
//
//	/api/v1/patients        -> patients, ""
//	/api/v1/patients/12     -> patients, 12
//	/api/v1/doctors/3/exams -> doctors, 3
func splitResourcePath(path string) (string, string) {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func methodToAction(method, id string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	if id == "" {
		return "list"
	}
	return "read"
}
