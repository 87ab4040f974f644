// Package config loads runtime configuration from the environment. A .env
// file is honored in development; production supplies real env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort         = "8080"
	defaultJWTSecret    = "change-me-jwt-secret"
	defaultJWTAccessTTL = "24h"
	defaultTossBaseURL  = "https://api.tosspayments.com/v1"
	defaultSweepMaxAge  = "1h"
)

type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string

	JWTSecret    string
	JWTAccessTTL time.Duration

	// Toss Payments server key; test_sk_* in dev, live_sk_* in production.
	TossSecretKey string
	TossBaseURL   string

	GoogleClientID string
	AppleClientID  string

	RabbitURL string
	RedisAddr string

	SensAccessKey  string
	SensSecretKey  string
	SensServiceID  string
	SensFromNumber string

	SweepMaxAge time.Duration

	RateLimit RateLimitConfig
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

func Load() (*Config, error) {
	// Missing .env is fine; env vars may come from the orchestrator.
	_ = godotenv.Load()

	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.Port = getEnv("PORT", defaultPort)

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}

	cfg.TossSecretKey = strings.TrimSpace(os.Getenv("TOSS_SECRET_KEY"))
	cfg.TossBaseURL = getEnv("TOSS_BASE_URL", defaultTossBaseURL)

	cfg.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	cfg.AppleClientID = strings.TrimSpace(os.Getenv("APPLE_CLIENT_ID"))

	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))

	cfg.SensAccessKey = strings.TrimSpace(os.Getenv("SENS_ACCESS_KEY"))
	cfg.SensSecretKey = strings.TrimSpace(os.Getenv("SENS_SECRET_KEY"))
	cfg.SensServiceID = strings.TrimSpace(os.Getenv("SENS_SERVICE_ID"))
	cfg.SensFromNumber = strings.TrimSpace(os.Getenv("SENS_FROM_NUMBER"))

	cfg.SweepMaxAge, err = parseDurationEnv("SWEEP_MAX_AGE", defaultSweepMaxAge)
	if err != nil {
		return nil, err
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:        parseBoolEnv("RATE_LIMIT_ENABLED", "true"),
		Capacity:       parseIntEnv("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   parseIntEnv("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: mustDuration("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            mustDuration("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.RateLimit.Capacity < 1 {
		cfg.RateLimit.Capacity = 1
	}
	if cfg.RateLimit.RefillTokens < 1 {
		cfg.RateLimit.RefillTokens = 1
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RateLimit.RefillInterval; cfg.RateLimit.TTL < minTTL {
		cfg.RateLimit.TTL = minTTL
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.SweepMaxAge <= 0 {
		return fmt.Errorf("SWEEP_MAX_AGE must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.TossSecretKey == "" {
			return fmt.Errorf("in prod/release TOSS_SECRET_KEY must be set")
		}
		if !strings.HasPrefix(cfg.TossSecretKey, "live_") {
			return fmt.Errorf("in prod/release TOSS_SECRET_KEY must be a live_ key")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func mustDuration(name string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseIntEnv(name string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
