package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrBadCredentials):
		return http.StatusUnauthorized, domain.ErrBadCredentials.Error()
	case errors.Is(err, domain.ErrInvalidOrExpired):
		return http.StatusUnauthorized, domain.ErrInvalidOrExpired.Error()
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, domain.ErrInvalidToken.Error()
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusForbidden, domain.ErrAccountLocked.Error()
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return http.StatusNotFound, domain.ErrPrincipalNotFound.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, domain.ErrRateLimited.Error()
	case errors.Is(err, domain.ErrUnrecognizedRole):
		return http.StatusBadRequest, domain.ErrUnrecognizedRole.Error()
	case errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusBadRequest, domain.ErrInvalidPassword.Error()
	case errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusBadGateway, domain.ErrDeliveryFailed.Error()
	}

	// Unexpected error, including ErrUnrecognizedPrincipalKind: log the real
	// cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
