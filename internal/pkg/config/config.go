package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// LogComponentLevels overrides LogLevel per component: "guard=warn,session=debug".
	LogComponentLevels string `env:"LOG_COMPONENT_LEVELS"`

	Auth    AuthConfig
	Session SessionConfig
	Audit   AuditConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET, required"`
	Issuer          string        `env:"JWT_ISSUER, default=portal"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
	// LoginRateLimit is the number of credential attempts per IP per minute.
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT, default=20"`
}

type SessionConfig struct {
	CookieName   string        `env:"SESSION_COOKIE, default=portal_session"`
	TTL          time.Duration `env:"SESSION_TTL,    default=168h"`
	CookieSecure bool          `env:"COOKIE_SECURE,  default=false"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=portal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}
	return &cfg, nil
}
