package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	_ "github.com/bookstore/backoffice/docs"
	"github.com/bookstore/backoffice/internal/api"
	"github.com/bookstore/backoffice/internal/api/handler"
	"github.com/bookstore/backoffice/internal/core/ports"
	"github.com/bookstore/backoffice/internal/core/service"
	"github.com/bookstore/backoffice/internal/infrastructure/db/mongo"
	redisdb "github.com/bookstore/backoffice/internal/infrastructure/db/redis"
	"github.com/bookstore/backoffice/internal/infrastructure/mail"
	"github.com/bookstore/backoffice/internal/infrastructure/ratelimit"
	"github.com/bookstore/backoffice/internal/pkg/config"
	"github.com/bookstore/backoffice/pkg/logger"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = time.Minute
)

// @title          Bookstore back-office API
// @version        1.0
// @description    Authentication and credential lifecycle for employees and clients.
// @BasePath       /
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "backoffice",
		Env:     cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, nil); err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

// run wires every component and serves until ctx is cancelled. If ready is
// non-nil the base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, ready chan<- string) error {
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return fmt.Errorf("failed to set up mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to set up redis: %w", err)
		}
		defer rdb.Close()
	}

	employees := mongo.NewEmployeeRepository(db)
	clients := mongo.NewClientRepository(db)
	indexers := []mongo.Indexer{employees, clients}

	secrets, mongoSecrets := mongo.NewSecretRepositories(db)
	if cfg.Auth.TokenStore == config.StoreRedis {
		secrets = redisdb.NewSecretRepositories(rdb)
	} else {
		for _, r := range mongoSecrets {
			indexers = append(indexers, r)
		}
	}
	if err := mongo.EnsureIndexes(ctx, indexers...); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	workers, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	limiter := newLimiter(workers, cfg, rdb)
	mailer := newMailer(workers, cfg, rdb, log)

	codec := service.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	sessions := service.NewSessionService(service.SessionDeps{
		Employees:  employees,
		Clients:    clients,
		Secrets:    secrets,
		Tokens:     codec,
		Mailer:     mailer,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		ResetTTL:   cfg.Auth.ResetCodeTTL,
		StrictRole: cfg.Auth.StrictRole,
	}, log)
	accounts := service.NewAccountService(clients, secrets.ClientRefresh, log)

	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return err
	}
	e := api.NewRouter(api.Deps{
		Sessions:       sessions,
		Accounts:       accounts,
		Verifier:       codec,
		Limiter:        limiter,
		TrustedProxies: proxies,
		Health:         healthChecks(db, rdb),
		Log:            log,
	})

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	server := &http.Server{Handler: e, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("backoffice listening")
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// newLimiter picks the login limiter backend. The in-memory limiter gets a
// janitor that lives as long as ctx.
func newLimiter(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient) ports.RateLimiter {
	if cfg.RateLimit.Backend == config.LimiterRedis {
		return ratelimit.NewRedis(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window)
	}
	m := ratelimit.NewMemory(cfg.RateLimit.Max, cfg.RateLimit.Window)
	go m.Run(ctx, janitorInterval)
	return m
}

// newMailer picks the reset-code delivery path. With MAIL_QUEUE the chosen
// mailer sits behind a Redis queue drained by a worker bound to ctx.
func newMailer(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient, log zerolog.Logger) ports.Mailer {
	var m ports.Mailer
	switch cfg.Mail.Mode {
	case config.MailSMTP:
		m = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			StartTLS: cfg.SMTP.StartTLS,
			CodeTTL:  cfg.Auth.ResetCodeTTL,
		})
	default:
		log.Warn().Msg("MAIL_MODE=log: reset codes are written to the log")
		m = mail.NewLogMailer(log)
	}

	if !cfg.Mail.Queue {
		return m
	}
	q := mail.NewQueuedMailer(m, rdb, cfg.Mail.QueueKey, cfg.Mail.QueueMaxSize, log)
	go q.Run(ctx)
	return q
}

func healthChecks(db *mongodriver.Database, rdb *redis.Client) map[string]handler.PingFunc {
	checks := map[string]handler.PingFunc{"mongodb": handler.MongoPing(db)}
	if rdb != nil {
		checks["redis"] = handler.RedisPing(rdb)
	}
	return checks
}
