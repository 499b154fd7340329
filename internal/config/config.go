package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the router.
type Config struct {
	App            AppConfig
	Postgres       PostgresConfig
	Redis          RedisConfig
	Logger         LoggerConfig
	Auth           AuthConfig
	Routing        RoutingConfig
	Classification ClassificationConfig
	Notification   NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects in-memory storage.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	EventsEnabled bool
	ChannelPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	Enabled               bool
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorEmail         string
	OperatorPasswordHash  string
}

// RoutingConfig tunes assignment.
type RoutingConfig struct {
	ConfidenceThreshold float64
	AutoAssignOnCreate  bool
	MaxAutoAttempts     int
}

// ClassificationConfig sizes the background classification worker.
type ClassificationConfig struct {
	Workers        int
	QueueSize      int
	TimeoutSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
// A malformed numeric or boolean value fails the load.
func Load() (*Config, error) {
	_ = godotenv.Load()

	r := &envReader{}
	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-router"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: r.int("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(r.int("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(r.int("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  r.bool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(r.int("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(r.int("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            r.int("REDIS_DB", 0),
			EventsEnabled: r.bool("REDIS_EVENTS_ENABLED", false),
			ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "tickets"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			Enabled:               r.bool("AUTH_ENABLED", false),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: r.int("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorEmail:         strings.ToLower(getEnv("AUTH_OPERATOR_EMAIL", "")),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
		},
		Routing: RoutingConfig{
			ConfidenceThreshold: r.float("ROUTING_CONFIDENCE_THRESHOLD", 0.7),
			AutoAssignOnCreate:  r.bool("ROUTING_AUTO_ASSIGN_ON_CREATE", true),
			MaxAutoAttempts:     r.int("ROUTING_MAX_AUTO_ATTEMPTS", 3),
		},
		Classification: ClassificationConfig{
			Workers:        r.int("CLASSIFY_WORKERS", 2),
			QueueSize:      r.int("CLASSIFY_QUEUE_SIZE", 64),
			TimeoutSeconds: r.int("CLASSIFY_TIMEOUT_SECONDS", 30),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}
	if r.err != nil {
		return nil, r.err
	}
	if t := cfg.Routing.ConfidenceThreshold; t < 0 || t > 1 {
		return nil, fmt.Errorf("invalid ROUTING_CONFIDENCE_THRESHOLD: %v not in [0,1]", t)
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// UsePostgres reports whether a database is configured.
func (p PostgresConfig) UsePostgres() bool {
	return p.DSN != ""
}

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// Timeout bounds a single classification call.
func (c ClassificationConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// envReader parses typed values and keeps the first failure.
type envReader struct {
	err error
}

func (r *envReader) fail(key, val string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
}

func (r *envReader) int(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return parsed
}

func (r *envReader) float(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return parsed
}

func (r *envReader) bool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return parsed
}
