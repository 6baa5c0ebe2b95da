package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Acuity   AcuityConfig
	Tenant   TenantConfig
	Sync     SyncEngineConfig
	OTEL     OTELConfig
	Logging  LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int `validate:"gt=0,lte=65535"`
	// AllowedOrigins lists CORS origins; empty allows any
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"gt=0"`
	User     string `validate:"required"`
	Password string
	Database string `validate:"required"`
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AcuityConfig holds the scheduling vendor credentials.
// An empty UserID or APIKey selects the mock scheduling provider.
type AcuityConfig struct {
	BaseURL     string `validate:"required,url"`
	UserID      string
	APIKey      string
	HTTPTimeout time.Duration `validate:"gt=0"`
}

// Enabled reports whether vendor credentials are configured.
func (c *AcuityConfig) Enabled() bool {
	return c.UserID != "" && c.APIKey != ""
}

// TenantConfig identifies the institution the background jobs run for.
type TenantConfig struct {
	InstitutionID string `validate:"required"`
	Locale        string `validate:"required"`
	TimeZone      string `validate:"required,timezone"`
}

// SyncEngineConfig holds every tunable of the synchronization engine.
//
// Defaults (see DefaultSyncEngineConfig):
//   - CallsPerSecond: 5 (the vendor documents 10/s as the ceiling)
//   - MaxRetryCount: 3, RetryBackoff: 200ms
//   - HistogramCap: 180 buckets, HistogramTimeZone: America/New_York
//   - times cache: expire 180s, refresh 60s; classes cache: expire 5m, refresh 1m
//   - LookaheadDays: 50
//   - availability job: 30s initial delay, 10m between runs
//   - appointment-type job: 10s initial delay, 5m between runs
type SyncEngineConfig struct {
	AutoStart bool

	CallsPerSecond    float64       `validate:"gt=0"`
	MaxRetryCount     int           `validate:"gte=0"`
	RetryBackoff      time.Duration `validate:"gte=0"`
	HistogramCap      int           `validate:"gt=0"`
	HistogramTimeZone string        `validate:"required,timezone"`

	TimesCacheExpiry    time.Duration `validate:"gt=0"`
	TimesCacheRefresh   time.Duration `validate:"gt=0,ltfield=TimesCacheExpiry"`
	ClassesCacheExpiry  time.Duration `validate:"gt=0"`
	ClassesCacheRefresh time.Duration `validate:"gt=0,ltfield=ClassesCacheExpiry"`
	CacheMaxEntries     int           `validate:"gt=0"`
	CacheLoadTimeout    time.Duration `validate:"gte=0"`

	LookaheadDays int `validate:"gt=0"`

	AvailabilityInitialDelay    time.Duration `validate:"gte=0"`
	AvailabilityDelay           time.Duration `validate:"gt=0"`
	AppointmentTypeInitialDelay time.Duration `validate:"gte=0"`
	AppointmentTypeDelay        time.Duration `validate:"gt=0"`
	ShutdownTimeout             time.Duration `validate:"gt=0"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Environment string
	Level       string
}

// DefaultSyncEngineConfig returns the engine defaults.
func DefaultSyncEngineConfig() SyncEngineConfig {
	return SyncEngineConfig{
		CallsPerSecond:    5,
		MaxRetryCount:     3,
		RetryBackoff:      200 * time.Millisecond,
		HistogramCap:      180,
		HistogramTimeZone: "America/New_York",

		TimesCacheExpiry:    180 * time.Second,
		TimesCacheRefresh:   60 * time.Second,
		ClassesCacheExpiry:  5 * time.Minute,
		ClassesCacheRefresh: time.Minute,
		CacheMaxEntries:     10000,
		CacheLoadTimeout:    30 * time.Second,

		LookaheadDays: 50,

		AvailabilityInitialDelay:    30 * time.Second,
		AvailabilityDelay:           10 * time.Minute,
		AppointmentTypeInitialDelay: 10 * time.Second,
		AppointmentTypeDelay:        5 * time.Minute,
		ShutdownTimeout:             10 * time.Second,
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	defaults := DefaultSyncEngineConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),

			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "provider_sync"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Acuity: AcuityConfig{
			BaseURL:     getEnv("ACUITY_BASE_URL", "https://acuityscheduling.com/api/v1"),
			UserID:      getEnv("ACUITY_USER_ID", ""),
			APIKey:      getEnv("ACUITY_API_KEY", ""),
			HTTPTimeout: getEnvAsDuration("ACUITY_HTTP_TIMEOUT", 30*time.Second),
		},
		Tenant: TenantConfig{
			InstitutionID: getEnv("SYNC_INSTITUTION_ID", "COBALT"),
			Locale:        getEnv("SYNC_LOCALE", "en-US"),
			TimeZone:      getEnv("SYNC_TIME_ZONE", "America/New_York"),
		},
		Sync: SyncEngineConfig{
			AutoStart: getEnvAsBool("SYNC_AUTOSTART", true),

			CallsPerSecond:    getEnvAsFloat("ACUITY_CALLS_PER_SECOND", defaults.CallsPerSecond),
			MaxRetryCount:     getEnvAsInt("ACUITY_MAX_RETRY_COUNT", defaults.MaxRetryCount),
			RetryBackoff:      getEnvAsDuration("ACUITY_RETRY_BACKOFF", defaults.RetryBackoff),
			HistogramCap:      getEnvAsInt("ACUITY_HISTOGRAM_CAP", defaults.HistogramCap),
			HistogramTimeZone: getEnv("ACUITY_HISTOGRAM_TIME_ZONE", defaults.HistogramTimeZone),

			TimesCacheExpiry:    getEnvAsDuration("CACHE_TIMES_EXPIRY", defaults.TimesCacheExpiry),
			TimesCacheRefresh:   getEnvAsDuration("CACHE_TIMES_REFRESH", defaults.TimesCacheRefresh),
			ClassesCacheExpiry:  getEnvAsDuration("CACHE_CLASSES_EXPIRY", defaults.ClassesCacheExpiry),
			ClassesCacheRefresh: getEnvAsDuration("CACHE_CLASSES_REFRESH", defaults.ClassesCacheRefresh),
			CacheMaxEntries:     getEnvAsInt("CACHE_MAX_ENTRIES", defaults.CacheMaxEntries),
			CacheLoadTimeout:    getEnvAsDuration("CACHE_LOAD_TIMEOUT", defaults.CacheLoadTimeout),

			LookaheadDays: getEnvAsInt("SYNC_LOOKAHEAD_DAYS", defaults.LookaheadDays),

			AvailabilityInitialDelay:    getEnvAsDuration("SYNC_AVAILABILITY_INITIAL_DELAY", defaults.AvailabilityInitialDelay),
			AvailabilityDelay:           getEnvAsDuration("SYNC_AVAILABILITY_DELAY", defaults.AvailabilityDelay),
			AppointmentTypeInitialDelay: getEnvAsDuration("SYNC_APPOINTMENT_TYPE_INITIAL_DELAY", defaults.AppointmentTypeInitialDelay),
			AppointmentTypeDelay:        getEnvAsDuration("SYNC_APPOINTMENT_TYPE_DELAY", defaults.AppointmentTypeDelay),
			ShutdownTimeout:             getEnvAsDuration("SYNC_SHUTDOWN_TIMEOUT", defaults.ShutdownTimeout),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "provider-sync"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Logging: LoggingConfig{
			Environment: getEnv("APP_ENV", "production"),
			Level:       getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints on every section.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerAddr returns the HTTP listen address
func (c *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("200ms", "10m").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated value, dropping blanks.
func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
