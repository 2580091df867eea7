package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TokenParser verifies raw bearer tokens.
type TokenParser interface {
	Parse(raw string, want TokenType) (*Claims, error)
}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Middleware authenticates requests with an access token. Revoked tokens
// and refresh tokens are rejected. On success the Actor and Claims are
// placed on the request context.
func Middleware(tokens TokenParser, revoked RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			raw, ok := BearerToken(authHeader)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := tokens.Parse(raw, AccessToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
			if err != nil {
				log.Ctx(ctx).Error().Err(err).Str("jti", claims.ID).Msg("revocation lookup failed")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication unavailable")
			}
			if isRevoked {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
			}

			actor, err := claims.Actor()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx = WithActor(ctx, actor)
			ctx = context.WithValue(ctx, claimsKey, claims)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
