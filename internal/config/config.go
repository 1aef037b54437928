package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Persistence
	StoreBackend string
	SQLitePath   string
	DatabaseURL  string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	// Change feed
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	PendingInputTTL time.Duration
	ViewTTL         time.Duration

	// Reporting
	Timezone      string
	DefaultPeriod string

	// Observability
	OTLPEndpoint string

	// Dev mode
	DevAuth bool // DEV_AUTH=true accepts X-User-ID instead of a bearer token
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendSupabase)),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/tracker.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tracker.changes"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "tracker"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		PendingInputTTL: getEnvDuration("PENDING_INPUT_TTL", 30*time.Minute),
		ViewTTL:         getEnvDuration("VIEW_TTL", 10*time.Minute),

		Timezone:      getEnv("TIMEZONE", "Local"),
		DefaultPeriod: strings.ToLower(getEnv("DEFAULT_PERIOD", "monthly")),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		DevAuth: getEnvBool("DEV_AUTH", false),
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.StoreBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required for the supabase backend"))
		}
		if c.SupabaseServiceKey == "" && c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("a Supabase API key is required for the supabase backend"))
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH cannot be empty for the sqlite backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid store backend %q: must be one of supabase, sqlite, postgres, memory", c.StoreBackend))
	}

	if !c.DevAuth && c.SupabaseJWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET is required unless DEV_AUTH is enabled"))
	}

	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, errors.New("AMQP_EXCHANGE cannot be empty when AMQP_URL is set"))
	}

	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY must be at least 1, got %d", c.MaxConcurrency))
	}

	switch c.DefaultPeriod {
	case "daily", "weekly", "monthly", "yearly":
	default:
		errs = append(errs, fmt.Errorf("invalid DEFAULT_PERIOD %q", c.DefaultPeriod))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
