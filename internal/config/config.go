package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "AgriSetu"
	defaultAppEnv        = "development"
	defaultPort          = "5000"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultTokenTTL      = 30 * 24 * time.Hour
	defaultCORSOrigins   = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

	defaultMaxRetries      = 5
	defaultRetryBaseDelay  = time.Second
	defaultRetryMaxDelay   = 10 * time.Second
	defaultSelectTimeout   = 5 * time.Second
	defaultSocketTimeout   = 45 * time.Second
	defaultMinPoolSize     = 2
	defaultMaxPoolSize     = 10
	defaultBodyLimitBytes  = 10 * 1024 * 1024
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	TokenTTL       time.Duration
	ShutdownPeriod time.Duration
	CORSOrigins    string
	BodyLimit      int

	// Store connection tuning.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	SelectTimeout  time.Duration
	SocketTimeout  time.Duration
	MinPoolSize    uint64
	MaxPoolSize    uint64
}

// Load reads configuration values from the environment and populates a Config
// instance. Missing MONGODB_URI or JWT_SECRET is a startup failure: the
// process must never serve traffic without a store or a signing secret.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  getEnv("MONGODB_DB", "agrisetu"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenTTL:       defaultTokenTTL,
		ShutdownPeriod: defaultShutdownDelay,
		CORSOrigins:    getEnv("CORS_ORIGINS", defaultCORSOrigins),
		BodyLimit:      defaultBodyLimitBytes,
		MaxRetries:     defaultMaxRetries,
		RetryBaseDelay: defaultRetryBaseDelay,
		RetryMaxDelay:  defaultRetryMaxDelay,
		SelectTimeout:  defaultSelectTimeout,
		SocketTimeout:  defaultSocketTimeout,
		MinPoolSize:    defaultMinPoolSize,
		MaxPoolSize:    defaultMaxPoolSize,
	}

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("MONGODB_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid MONGODB_MAX_RETRIES: %q", v)
		}
		cfg.MaxRetries = n
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGODB_URI must be set")
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
