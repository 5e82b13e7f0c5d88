package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Logger    LoggerConfig    `yaml:"logger"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Events    EventsConfig    `yaml:"events"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string   `yaml:"name"`
	Env                   string   `yaml:"env"`
	Host                  string   `yaml:"host"`
	Port                  string   `yaml:"port"`
	Version               string   `yaml:"version"`
	RequestTimeoutSeconds int      `yaml:"requestTimeoutSeconds"`
	CORSOrigins           []string `yaml:"corsOrigins"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int32  `yaml:"maxConns"`
	MinConns       int32  `yaml:"minConns"`
	RunMigrations  bool   `yaml:"runMigrations"`
	ConnMaxIdleSec int32  `yaml:"connMaxIdleSeconds"`
	ConnMaxLifeSec int32  `yaml:"connMaxLifeSeconds"`
	MaxTxRetries   int    `yaml:"maxTxRetries"`
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `yaml:"jwtSecret"`
	AccessTokenTTLMinutes int    `yaml:"accessTokenTTLMinutes"`
	BcryptCost            int    `yaml:"bcryptCost"`
	AdminEmail            string `yaml:"adminEmail"`
	AdminPassword         string `yaml:"adminPassword"`
}

// RateLimitConfig bounds unauthenticated auth endpoints. Zero disables the limit.
type RateLimitConfig struct {
	AuthPerMinute int `yaml:"authPerMinute"`
}

// EventsConfig controls lifecycle event fan-out.
type EventsConfig struct {
	StreamName string `yaml:"streamName"`
	WebhookURL string `yaml:"webhookURL"`
}

func defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:                  "marketplace-service",
			Env:                   "development",
			Host:                  "0.0.0.0",
			Port:                  "8080",
			Version:               "dev",
			RequestTimeoutSeconds: 30,
			CORSOrigins:           []string{"*"},
		},
		Store: StoreConfig{Driver: DriverPostgres},
		Postgres: PostgresConfig{
			MaxConns:       10,
			MinConns:       2,
			RunMigrations:  true,
			ConnMaxIdleSec: 30,
			ConnMaxLifeSec: 300,
			MaxTxRetries:   3,
		},
		SQLite: SQLiteConfig{DSN: "file:marketplace.db?_pragma=foreign_keys(1)"},
		Redis:  RedisConfig{Addr: "127.0.0.1:6379"},
		Logger: LoggerConfig{Level: "info"},
		Auth: AuthConfig{
			JWTSecret:             "dev-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            12,
		},
		RateLimit: RateLimitConfig{AuthPerMinute: 20},
		Events:    EventsConfig{StreamName: "marketplace:events"},
	}
}

// Load builds configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Name, "APP_NAME")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.Host, "APP_HOST")
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.Version, "APP_VERSION")
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		cfg.App.CORSOrigins = splitList(v)
	}
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setString(&cfg.SQLite.DSN, "SQLITE_DSN")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Logger.Level, "LOG_LEVEL")
	setString(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setString(&cfg.Auth.AdminEmail, "AUTH_ADMIN_EMAIL")
	setString(&cfg.Auth.AdminPassword, "AUTH_ADMIN_PASSWORD")
	setString(&cfg.Events.StreamName, "EVENTS_STREAM_NAME")
	setString(&cfg.Events.WebhookURL, "NOTIFY_WEBHOOK_URL")

	ints := []struct {
		key string
		dst *int
	}{
		{"HTTP_REQUEST_TIMEOUT_SECONDS", &cfg.App.RequestTimeoutSeconds},
		{"POSTGRES_MAX_TX_RETRIES", &cfg.Postgres.MaxTxRetries},
		{"REDIS_DB", &cfg.Redis.DB},
		{"AUTH_ACCESS_TOKEN_TTL_MINUTES", &cfg.Auth.AccessTokenTTLMinutes},
		{"AUTH_BCRYPT_COST", &cfg.Auth.BcryptCost},
		{"AUTH_RATE_LIMIT_PER_MINUTE", &cfg.RateLimit.AuthPerMinute},
	}
	for _, item := range ints {
		if err := setInt(item.dst, item.key); err != nil {
			return err
		}
	}

	int32s := []struct {
		key string
		dst *int32
	}{
		{"POSTGRES_MAX_CONNS", &cfg.Postgres.MaxConns},
		{"POSTGRES_MIN_CONNS", &cfg.Postgres.MinConns},
		{"POSTGRES_CONN_MAX_IDLE_SECONDS", &cfg.Postgres.ConnMaxIdleSec},
		{"POSTGRES_CONN_MAX_LIFE_SECONDS", &cfg.Postgres.ConnMaxLifeSec},
	}
	for _, item := range int32s {
		n := int(*item.dst)
		if err := setInt(&n, item.key); err != nil {
			return err
		}
		*item.dst = int32(n)
	}

	if v := os.Getenv("POSTGRES_RUN_MIGRATIONS"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid POSTGRES_RUN_MIGRATIONS: %w", err)
		}
		cfg.Postgres.RunMigrations = parsed
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("config: POSTGRES_DSN is required for the postgres store")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLite.DSN) == "" {
			return errors.New("config: SQLITE_DSN is required for the sqlite store")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	if c.RateLimit.AuthPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return errors.New("config: AUTH_ADMIN_EMAIL and AUTH_ADMIN_PASSWORD must be set together")
	}
	return nil
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

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
