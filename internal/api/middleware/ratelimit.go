package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/api/metrics"
	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

// LoginRateLimit admits or denies a request by its client IP. A denied request
// fails with domain.ErrRateLimited. If the limiter itself fails the request is
// let through and the failure logged.
func LoginRateLimit(limiter ports.RateLimiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			ok, err := limiter.Admit(c.Request().Context(), ip)
			if err != nil {
				log.Error().Err(err).Str("ip", ip).Msg("rate limiter unavailable, admitting request")
				return next(c)
			}
			if !ok {
				metrics.RateLimitDeniedTotal.Inc()
				log.Warn().Str("ip", ip).Msg("login rate limit exceeded")
				return domain.ErrRateLimited
			}
			return next(c)
		}
	}
}
