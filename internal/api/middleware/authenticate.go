package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/api/metrics"
	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

const bearerPrefix = "bearer "

// Authenticate turns a valid "Authorization: Bearer <token>" header into a
// domain.Identity on the request. It never rejects a request: a missing,
// malformed, expired or tampered token leaves the request unauthenticated and
// the chain continues. Routes that need an identity add RequireAuth or
// RequireRole after it.
func Authenticate(verifier ports.TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFrom(c); ok {
				return next(c)
			}

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.TokenVerificationsTotal.WithLabelValues("absent").Inc()
				return next(c)
			}

			id, err := verify(verifier, token)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")
				return next(c)
			}

			metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
			setIdentity(c, id)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// verify shields the request from a verifier panic.
func verify(verifier ports.TokenVerifier, token string) (id domain.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: verifier panic: %v", domain.ErrInvalidToken, r)
		}
	}()

	claims, err := verifier.Verify(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return claims.Identity(), nil
}
