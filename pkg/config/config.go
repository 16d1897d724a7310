package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relatoapp/relato/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Permissions   PermissionsConfig   `yaml:"permissions"`
	Notify        NotifyConfig        `yaml:"notify"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`

	// Base domain used for subdomain tenant resolution, e.g. "relato.com.br"
	BaseDomain string `yaml:"base_domain"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// RedisConfig holds Redis configuration used by the rate limiter.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// AuthConfig holds token issuance and validation settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// PermissionsConfig holds permission cache tuning.
type PermissionsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// NotifyConfig holds notification retention settings.
type NotifyConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	PurgeSchedule string `yaml:"purge_schedule"`
}

// RateLimitConfig holds per-tenant request rate limits.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// LoadConfig loads configuration from the optional YAML file named by
// RELATO_CONFIG_FILE, then overrides it with RELATO_* environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := getEnv("RELATO_CONFIG_FILE", ""); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Observability.LogLevelName != "" {
		cfg.Observability.LogLevel = observability.ParseLevel(cfg.Observability.LogLevelName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               "8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    30 * time.Second,
			HealthPort:         "9090",
			BaseDomain:         "relato.com.br",
			CORSAllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConns:        25,
			MinConns:        5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		Redis: RedisConfig{
			URL:      "localhost:6379",
			PoolSize: 10,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Permissions: PermissionsConfig{
			CacheTTL: 5 * time.Minute,
		},
		Notify: NotifyConfig{
			RetentionDays: 30,
			PurgeSchedule: "0 3 * * *",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 300,
			Burst:             50,
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "relato-api",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv overrides config values from RELATO_* environment variables.
func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("RELATO_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("RELATO_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("RELATO_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("RELATO_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("RELATO_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("RELATO_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("RELATO_HEALTH_PORT", cfg.Server.HealthPort)
	cfg.Server.BaseDomain = getEnv("RELATO_BASE_DOMAIN", cfg.Server.BaseDomain)
	if origins := getEnv("RELATO_CORS_ORIGINS", ""); origins != "" {
		cfg.Server.CORSAllowedOrigins = splitAndTrim(origins)
	}

	cfg.Database.URL = getEnv("RELATO_POSTGRES_URL", cfg.Database.URL)
	cfg.Database.MaxConns = getEnvInt("RELATO_POSTGRES_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvInt("RELATO_POSTGRES_MIN_CONNS", cfg.Database.MinConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("RELATO_POSTGRES_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)
	cfg.Database.QueryTimeout = getEnvDuration("RELATO_POSTGRES_TIMEOUT", cfg.Database.QueryTimeout)

	cfg.Redis.Enabled = getEnvBool("RELATO_REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.URL = getEnv("RELATO_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("RELATO_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("RELATO_REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = getEnvInt("RELATO_REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	cfg.Auth.JWTSecret = getEnv("RELATO_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("RELATO_TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.Permissions.CacheTTL = getEnvDuration("RELATO_PERMISSION_CACHE_TTL", cfg.Permissions.CacheTTL)

	cfg.Notify.RetentionDays = getEnvInt("RELATO_NOTIFY_RETENTION_DAYS", cfg.Notify.RetentionDays)
	cfg.Notify.PurgeSchedule = getEnv("RELATO_NOTIFY_PURGE_SCHEDULE", cfg.Notify.PurgeSchedule)

	cfg.RateLimit.Enabled = getEnvBool("RELATO_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = getEnvInt("RELATO_RATE_LIMIT_RPM", cfg.RateLimit.RequestsPerMinute)
	cfg.RateLimit.Burst = getEnvInt("RELATO_RATE_LIMIT_BURST", cfg.RateLimit.Burst)

	cfg.Observability.LogLevelName = getEnv("RELATO_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("RELATO_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("RELATO_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("RELATO_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("RELATO_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("RELATO_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("RELATO_OTEL_INSECURE", cfg.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.BaseDomain == "" {
		return fmt.Errorf("base domain is required for subdomain tenant resolution")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("postgres min conns (%d) cannot exceed max conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Permissions.CacheTTL <= 0 {
		return fmt.Errorf("permission cache TTL must be positive")
	}

	if c.Notify.RetentionDays <= 0 {
		return fmt.Errorf("notification retention days must be positive")
	}
	if c.Notify.PurgeSchedule == "" {
		return fmt.Errorf("notification purge schedule is required")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
