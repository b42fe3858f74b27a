package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/denomination"
	"github.com/noah-isme/backend-kasir/internal/loyalty"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	BackendBaseURL      string
	BackendToken        string
	BackendTimeout      time.Duration
	BackendMaxAttempts  int
	BackendBackoff      time.Duration
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	TaxRate        decimal.Decimal
	PointValue     decimal.Decimal
	AccrualDivisor decimal.Decimal
	Denominations  denomination.Table
	PriceCurrency  string
	USDRate        decimal.Decimal

	SessionTTL      time.Duration
	LockTTL         time.Duration
	IdempotencyTTL  time.Duration
	CatalogCacheTTL time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	QueueName         string
	WorkerConcurrency int
	ReconcileMaxRetry int
	ReconcileLedger   string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		BackendBaseURL:      strings.TrimSpace(k.String("BACKEND_BASE_URL")),
		BackendToken:        strings.TrimSpace(k.String("BACKEND_API_TOKEN")),
		BackendTimeout:      parseDuration(k.String("BACKEND_TIMEOUT"), "10s"),
		BackendMaxAttempts:  parseInt(k.String("BACKEND_MAX_ATTEMPTS"), 3),
		BackendBackoff:      parseDuration(k.String("BACKEND_RETRY_BACKOFF"), "200ms"),
		BreakerMinRequests:  parseInt(k.String("BACKEND_BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio: parseFloat(k.String("BACKEND_BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BACKEND_BREAKER_OPEN_FOR"), "30s"),

		PriceCurrency: strings.ToUpper(strings.TrimSpace(valueOrDefault(k.String("PRICE_CURRENCY"), "THB"))),

		SessionTTL:      parseDuration(k.String("SESSION_TTL"), "12h"),
		LockTTL:         parseDuration(k.String("SESSION_LOCK_TTL"), "30s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),

		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),

		QueueName:         valueOrDefault(k.String("RECONCILE_QUEUE"), "reconcile"),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 4),
		ReconcileMaxRetry: parseInt(k.String("RECONCILE_MAX_RETRY"), 10),
		ReconcileLedger:   valueOrDefault(k.String("RECONCILE_LEDGER_KEY"), "reconcile:open"),
	}

	var errs []error
	if cfg.BackendBaseURL == "" {
		errs = append(errs, errors.New("BACKEND_BASE_URL is required"))
	}
	var err error
	if cfg.TaxRate, err = parseDecimal("TAX_RATE", k.String("TAX_RATE"), "0.08"); err != nil {
		errs = append(errs, err)
	} else if cfg.TaxRate.IsNegative() {
		errs = append(errs, fmt.Errorf("TAX_RATE must not be negative, got %s", cfg.TaxRate))
	}
	if cfg.PointValue, err = parseDecimal("LOYALTY_POINT_VALUE", k.String("LOYALTY_POINT_VALUE"), "0.1"); err != nil {
		errs = append(errs, err)
	}
	if cfg.AccrualDivisor, err = parseDecimal("LOYALTY_ACCRUAL_DIVISOR", k.String("LOYALTY_ACCRUAL_DIVISOR"), "100"); err != nil {
		errs = append(errs, err)
	}
	if cfg.USDRate, err = parseDecimal("USD_THB_RATE", k.String("USD_THB_RATE"), "35"); err != nil {
		errs = append(errs, err)
	}
	if cfg.Denominations, err = denomination.ParseCSV(valueOrDefault(k.String("DENOMINATIONS"), denomination.Default.String())); err != nil {
		errs = append(errs, fmt.Errorf("DENOMINATIONS: %w", err))
	}
	if err := cfg.LoyaltyRules().Validate(); err != nil {
		errs = append(errs, err)
	}
	// Complete holds the session lock across the redemption and sale calls,
	// each bounded by BackendTimeout, and the lock is not renewed.
	if minLock := 2 * cfg.BackendTimeout; cfg.LockTTL <= minLock {
		errs = append(errs, fmt.Errorf("SESSION_LOCK_TTL must exceed twice BACKEND_TIMEOUT (%s), got %s", minLock, cfg.LockTTL))
	}
	switch cfg.PriceCurrency {
	case "THB", "USD":
	default:
		errs = append(errs, fmt.Errorf("PRICE_CURRENCY must be THB or USD, got %q", cfg.PriceCurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoyaltyRules returns the configured point conversion constants.
func (c *Config) LoyaltyRules() loyalty.Rules {
	return loyalty.Rules{PointValue: c.PointValue, AccrualDivisor: c.AccrualDivisor}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDecimal(key, value, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(valueOrDefault(strings.TrimSpace(value), fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
