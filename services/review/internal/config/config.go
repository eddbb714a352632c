package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/sunil0336/MovieBuffs-sub000/pkg/config"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/database"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/middleware"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/tracing"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Identity modes.
const (
	IdentityJWT    = "jwt"
	IdentityHeader = "header"
)

// ServiceName identifies the review service in logs, metrics and traces.
const ServiceName = "review-service"

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"0.1.0"`

	// HTTP server
	HTTPPort        int           `env:"REVIEW_HTTP_PORT" envDefault:"8010"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Storage. MemoryCatalog seeds the in-memory catalog as kind:id pairs.
	StorageDriver string   `env:"STORAGE_DRIVER" envDefault:"postgres"`
	MemoryCatalog []string `env:"MEMORY_CATALOG_ITEMS" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"moviebuffs"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"moviebuffs_secret"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"moviebuffs"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	RunMigrations         bool  `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis review cache
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"REVIEW_CACHE_TTL" envDefault:"5m"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"review-service"`

	// Identity
	IdentityMode string        `env:"IDENTITY_MODE" envDefault:"jwt"`
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTIssuer    string        `env:"JWT_ISSUER" envDefault:"moviebuffs"`
	JWTExpiry    time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// Review policy
	RatingMin        int `env:"RATING_MIN" envDefault:"1"`
	RatingMax        int `env:"RATING_MAX" envDefault:"10"`
	ReviewTitleMax   int `env:"REVIEW_TITLE_MAX" envDefault:"100"`
	ReviewContentMin int `env:"REVIEW_CONTENT_MIN" envDefault:"10"`
	CommentMax       int `env:"COMMENT_MAX" envDefault:"1000"`

	// Anonymous helpfulness votes, per client IP
	VoteRateLimit float64 `env:"VOTE_RATE_LIMIT" envDefault:"1"`
	VoteBurst     int     `env:"VOTE_BURST" envDefault:"5"`

	// Profiling endpoints, reachable only from these peers
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Cache-Control max-age on item rating reads; zero forces revalidation
	RatingMaxAge time.Duration `env:"RATING_CACHE_MAX_AGE" envDefault:"0s"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	CORS middleware.CORSConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv reads configuration from environ instead of the process environment.
func LoadWithEnv(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithEnv(cfg, environ); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageDriver {
	case StorageMemory:
		if _, err := c.CatalogSeed(); err != nil {
			return err
		}
	case StoragePostgres:
		if c.PostgresHost == "" {
			return errors.New("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return errors.New("POSTGRES_USER is required")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver)
	}
	switch c.IdentityMode {
	case IdentityJWT:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when IDENTITY_MODE=jwt")
		}
	case IdentityHeader:
	default:
		return fmt.Errorf("IDENTITY_MODE must be %q or %q, got %q", IdentityJWT, IdentityHeader, c.IdentityMode)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.RatingMin < 1 || c.RatingMax <= c.RatingMin {
		return fmt.Errorf("invalid rating range %d..%d", c.RatingMin, c.RatingMax)
	}
	if c.ReviewTitleMax < 1 || c.ReviewContentMin < 1 || c.CommentMax < 1 {
		return errors.New("REVIEW_TITLE_MAX, REVIEW_CONTENT_MIN and COMMENT_MAX must be positive")
	}
	if c.VoteRateLimit <= 0 || c.VoteBurst < 1 {
		return fmt.Errorf("invalid vote rate limit %.2f/s burst %d", c.VoteRateLimit, c.VoteBurst)
	}
	if c.RatingMaxAge < 0 {
		return fmt.Errorf("RATING_CACHE_MAX_AGE must not be negative, got %s", c.RatingMaxAge)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Policy returns the review validation bounds.
func (c *Config) Policy() domain.ReviewPolicy {
	return domain.ReviewPolicy{
		RatingMin:  c.RatingMin,
		RatingMax:  c.RatingMax,
		TitleMax:   c.ReviewTitleMax,
		ContentMin: c.ReviewContentMin,
		CommentMax: c.CommentMax,
	}
}

// CatalogItem is one entry of the in-memory catalog seed.
type CatalogItem struct {
	Kind domain.ItemKind
	ID   string
}

// CatalogSeed parses MEMORY_CATALOG_ITEMS.
func (c *Config) CatalogSeed() ([]CatalogItem, error) {
	items := make([]CatalogItem, 0, len(c.MemoryCatalog))
	for _, raw := range c.MemoryCatalog {
		kindPart, id, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("MEMORY_CATALOG_ITEMS entry %q must be kind:id", raw)
		}
		kind, err := domain.ParseItemKind(kindPart)
		if err != nil {
			return nil, fmt.Errorf("MEMORY_CATALOG_ITEMS: %w", err)
		}
		items = append(items, CatalogItem{Kind: kind, ID: strings.TrimSpace(id)})
	}
	return items, nil
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the cache client settings.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Addr = c.RedisAddr
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
