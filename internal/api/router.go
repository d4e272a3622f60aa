package api

import (
	"net"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/bookstore/backoffice/internal/api/handler"
	"github.com/bookstore/backoffice/internal/api/middleware"
	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

const metricsNamespace = "backoffice"

// Deps are the collaborators the router wires into handlers and middleware.
type Deps struct {
	Sessions ports.SessionService
	Accounts ports.AccountService
	Verifier ports.TokenVerifier
	Limiter  ports.RateLimiter
	// TrustedProxies are the peers allowed to set X-Forwarded-For. With none,
	// the client IP is the connection's remote address.
	TrustedProxies []*net.IPNet
	// Health maps dependency names to readiness checks.
	Health map[string]handler.PingFunc
	// Registry receives the HTTP request metrics. Nil means the default registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = ipExtractor(deps.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promMiddlewareConfig(deps.Registry)))
	e.Use(middleware.Authenticate(deps.Verifier, deps.Log))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Sessions)
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login, middleware.LoginRateLimit(deps.Limiter, deps.Log))
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/change-password", authHandler.ChangePassword)
	auth.POST("/logout", authHandler.Logout, middleware.RequireAuth())
	auth.GET("/me", authHandler.Me, middleware.RequireAuth())

	// --- Client management (employees only) ---
	clientHandler := handler.NewClientHandler(deps.Accounts)
	clients := e.Group("/v1/clients", middleware.RequireRole(domain.RoleEmployee))
	clients.POST("/block", clientHandler.Block)
	clients.POST("/unblock", clientHandler.Unblock)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Health)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(promHandlerConfig(deps.Registry)))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// ipExtractor decides what c.RealIP returns, and with it the login rate
// limit key.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func promMiddlewareConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{
		Namespace: metricsNamespace,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func promHandlerConfig(reg *prometheus.Registry) echoprometheus.HandlerConfig {
	if reg == nil {
		return echoprometheus.HandlerConfig{}
	}
	return echoprometheus.HandlerConfig{Gatherer: reg}
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
