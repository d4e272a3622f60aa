package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// IdentityKey is the echo.Context key holding the authenticated domain.Identity.
const IdentityKey = "identity"

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity attached by Authenticate, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return id, ok
}

// IdentityFrom returns the identity attached to c by Authenticate, if any.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(IdentityKey).(domain.Identity)
	return id, ok
}

func setIdentity(c echo.Context, id domain.Identity) {
	c.Set(IdentityKey, id)
	c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
}
