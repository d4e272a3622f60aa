package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const minJWTSecretLength = 32

// Backend and mode values.
const (
	StoreMongo = "mongo"
	StoreRedis = "redis"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"

	MailLog  = "log"
	MailSMTP = "smtp"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// TrustedProxies lists the CIDRs whose X-Forwarded-For header is believed.
	// Empty means the client IP is always the connection peer.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Auth      AuthConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	SMTP      SMTPConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTIssuer       string        `env:"JWT_ISSUER,        default=bookstore-backoffice"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
	ResetCodeTTL    time.Duration `env:"RESET_CODE_TTL,    default=15m"`
	// StrictRole rejects a missing or unknown role instead of defaulting to CLIENT.
	StrictRole bool `env:"AUTH_STRICT_ROLE, default=false"`
	// TokenStore selects where refresh tokens and reset codes live: mongo or redis.
	TokenStore string `env:"TOKEN_STORE, default=mongo"`
}

type RateLimitConfig struct {
	Max     int           `env:"LOGIN_RATE_LIMIT_MAX,    default=3"`
	Window  time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW, default=15m"`
	Backend string        `env:"RATE_LIMIT_BACKEND,      default=memory"`
}

type MailConfig struct {
	Mode string `env:"MAIL_MODE, default=log"`
	// Queue hands reset codes to a Redis-backed worker instead of sending inline.
	Queue        bool   `env:"MAIL_QUEUE,          default=false"`
	QueueKey     string `env:"MAIL_QUEUE_KEY,      default=backoffice:mail:queue"`
	QueueMaxSize int64  `env:"MAIL_QUEUE_MAX_SIZE, default=1000"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT,      default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	StartTLS bool   `env:"SMTP_STARTTLS,  default=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=bookstore"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig and
// validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	if c.Auth.ResetCodeTTL <= 0 {
		errs = append(errs, errors.New("RESET_CODE_TTL must be positive"))
	}
	if c.Auth.TokenStore != StoreMongo && c.Auth.TokenStore != StoreRedis {
		errs = append(errs, fmt.Errorf("TOKEN_STORE must be %q or %q", StoreMongo, StoreRedis))
	}

	if c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT_MAX must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimit.Backend != LimiterMemory && c.RateLimit.Backend != LimiterRedis {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q", LimiterMemory, LimiterRedis))
	}

	if _, err := c.TrustedProxyNets(); err != nil {
		errs = append(errs, err)
	}

	switch c.Mail.Mode {
	case MailLog:
	case MailSMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			errs = append(errs, errors.New("SMTP_HOST and SMTP_FROM are required when MAIL_MODE=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_MODE must be %q or %q", MailLog, MailSMTP))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// TrustedProxyNets parses TrustedProxies.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// NeedsRedis reports whether any configured component is backed by Redis.
func (c *Config) NeedsRedis() bool {
	return c.Auth.TokenStore == StoreRedis ||
		c.RateLimit.Backend == LimiterRedis ||
		c.Mail.Queue
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
