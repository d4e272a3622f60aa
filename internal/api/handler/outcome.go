package handler

import (
	"errors"

	"github.com/bookstore/backoffice/internal/api/metrics"
	"github.com/bookstore/backoffice/internal/core/domain"
)

// outcome turns a session service result into a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, domain.ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAccountLocked):
		return "locked"
	case errors.Is(err, domain.ErrInvalidOrExpired):
		return "invalid_or_expired"
	case errors.Is(err, domain.ErrUnrecognizedRole):
		return "unrecognized_role"
	case errors.Is(err, domain.ErrInvalidPassword):
		return "invalid_password"
	case errors.Is(err, domain.ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return metrics.ResultFailure
	}
}

// roleLabel bounds the role label to known values.
func roleLabel(raw string) string {
	if role, ok := domain.ParseRole(raw); ok {
		return string(role)
	}
	return "unknown"
}
