package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookstore/backoffice/internal/api/middleware"
	"github.com/bookstore/backoffice/internal/core/domain"
)

// ctxIdentity extracts the identity attached by the Authenticate middleware
// and fails fast before any service call:
//   - no identity means the bearer token was absent or invalid.
//   - an identity without a recognised role cannot be dispatched to a store.
func ctxIdentity(c echo.Context) (domain.Identity, domain.Role, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	role, ok := id.PrimaryRole()
	if !ok {
		return domain.Identity{}, "", echo.NewHTTPError(http.StatusUnauthorized, "token carries no recognised role")
	}
	return id, role, nil
}
