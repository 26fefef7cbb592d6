package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/moni-del/dragon-d/pkg/config"
	"github.com/moni-del/dragon-d/pkg/database"
	"github.com/moni-del/dragon-d/pkg/middleware"
	"github.com/moni-del/dragon-d/pkg/tracing"
)

const devJWTSecret = "dev-only-jwt-secret-change-me-please"

// Config holds all configuration for the store server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	ClientURL          string   `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"dtstore"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"dtstore"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"dtstore"`
	PostgresSSL  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Cart
	SessionTTLHours   int           `env:"SESSION_TTL_HOURS" envDefault:"168"`
	FlyingItemTTL     time.Duration `env:"FLYING_ITEM_TTL" envDefault:"800ms"`
	UsageWriteTimeout time.Duration `env:"USAGE_WRITE_TIMEOUT" envDefault:"5s"`
	ApplyLockTTL      time.Duration `env:"APPLY_LOCK_TTL" envDefault:"10s"`
	ProductCacheTTL   time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"1m"`

	// Rate limits, per cart session for discount codes and per IP for logins.
	DiscountRateRPS   float64 `env:"DISCOUNT_RATE_LIMIT_RPS" envDefault:"1"`
	DiscountRateBurst int     `env:"DISCOUNT_RATE_LIMIT_BURST" envDefault:"5"`
	LoginRateRPS      float64 `env:"LOGIN_RATE_LIMIT_RPS" envDefault:"0.2"`
	LoginRateBurst    int     `env:"LOGIN_RATE_LIMIT_BURST" envDefault:"5"`

	// Auth
	JWTSecret         string        `env:"JWT_SECRET" envDefault:"dev-only-jwt-secret-change-me-please"`
	JWTExpiry         time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	AdminEmail        string        `env:"ADMIN_EMAIL" envDefault:"admin@dtstore.local"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH" envDefault:""`

	// Discord gate
	DiscordClientID     string `env:"DISCORD_CLIENT_ID" envDefault:""`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET" envDefault:""`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" envDefault:"http://localhost:8080/auth/discord/callback"`
	DiscordGuildID      string `env:"DISCORD_GUILD_ID" envDefault:""`
	DiscordBotToken     string `env:"DISCORD_BOT_TOKEN" envDefault:""`
	DiscordInviteURL    string `env:"DISCORD_INVITE_URL" envDefault:""`
	DiscordAPIBaseURL   string `env:"DISCORD_API_BASE_URL" envDefault:"https://discord.com/api"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load store config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SessionTTL is how long an idle cart session survives.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Postgres returns the connection settings for the registry and catalog store.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}

// Redis returns the connection settings for the session store.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// Tracing returns the OpenTelemetry settings for serviceName.
func (c *Config) Tracing(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Environment = c.Environment
	tc.Enabled = c.OTELEnabled
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	tc.Insecure = !c.IsProduction()
	return tc
}

// DiscountRateLimit limits discount code attempts per cart session.
func (c *Config) DiscountRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		RPS:   c.DiscountRateRPS,
		Burst: c.DiscountRateBurst,
		Key:   middleware.SessionOrIP,
	}
}

// LoginRateLimit limits admin and Discord login attempts per client IP.
func (c *Config) LoginRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		RPS:   c.LoginRateRPS,
		Burst: c.LoginRateBurst,
	}
}

// DiscordConfigured reports whether the OAuth gate has credentials.
func (c *Config) DiscordConfigured() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != "" && c.DiscordGuildID != ""
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.DiscountRateRPS < 0 || c.LoginRateRPS < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive, got %d", c.SessionTTLHours)
	}
	if c.FlyingItemTTL <= 0 {
		return fmt.Errorf("FLYING_ITEM_TTL must be positive, got %s", c.FlyingItemTTL)
	}
	if c.UsageWriteTimeout <= 0 {
		return fmt.Errorf("USAGE_WRITE_TIMEOUT must be positive, got %s", c.UsageWriteTimeout)
	}
	if c.ApplyLockTTL <= 0 {
		return fmt.Errorf("APPLY_LOCK_TTL must be positive, got %s", c.ApplyLockTTL)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.IsProduction() {
		if c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.AdminPasswordHash == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be set in production")
		}
		if !c.DiscordConfigured() {
			return fmt.Errorf("DISCORD_CLIENT_ID, DISCORD_CLIENT_SECRET and DISCORD_GUILD_ID must be set in production")
		}
	}
	return nil
}
