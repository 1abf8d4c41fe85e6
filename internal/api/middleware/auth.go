package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/futurefundi/portal/internal/core/ports"
)

const ctxClaimsKey = "claims"

// Auth validates the bearer access token and injects its claims into context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := verifier.VerifyAccess(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ctxClaimsKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims set by Auth.
func ClaimsFrom(c echo.Context) (*ports.AccessClaims, bool) {
	claims, ok := c.Get(ctxClaimsKey).(*ports.AccessClaims)
	return claims, ok && claims != nil
}
