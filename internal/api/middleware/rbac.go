package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// RequireAuth rejects requests that Authenticate left without an identity.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFrom(c); !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			}
			return next(c)
		}
	}
}

// RequireRole enforces role-based access control on the authenticated
// identity: 401 without one, 403 when it holds none of the allowed roles.
func RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			}
			for _, role := range allowed {
				if id.HasRole(role) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}
