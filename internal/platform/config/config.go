package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Pricing modes for dynamic one-time plans.
const (
	PricingFallback = "fallback"
	PricingCatalog  = "catalog"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config is the full runtime configuration of the gateway.
type Config struct {
	Server       Server
	Database     Database
	Redis        RedisConfig
	Provider     Provider
	Kafka        Kafka
	Entitlement  Entitlement
	Verification Verification
	RateLimit    RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Env             string
	LogLevel        string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AdminToken      string
	ShutdownTimeout time.Duration
}

// Database is empty when the gateway runs on in-memory stores.
type Database struct {
	URL      string
	MaxConns int
}

// RedisConfig is empty when the entitlement cache is disabled.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Provider configures the upstream verification provider client.
type Provider struct {
	BaseURL            string
	APIKey             string
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// Kafka is only used for the audit publisher; no brokers means audit goes to logs.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Entitlement tunes the resolver and its cache.
type Entitlement struct {
	CacheTTL         time.Duration
	DynamicPlanPrice float64
	Pricing          string
}

// Verification holds the key used to hash request parameters into history.
type Verification struct {
	SubjectHashKey string
	HistoryLimit   int
}

// RateLimit bounds how often one user may call the paid provider. A zero
// budget disables the limit.
type RateLimit struct {
	Disabled               bool
	VerificationsPerWindow int
	Window                 time.Duration
}

// IsProduction reports whether the gateway runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// FromEnv builds the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: Server{
			Addr:            getEnv("KYCGATE_ADDR", ":8080"),
			Env:             getEnv("APP_ENV", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			JWTSigningKey:   getEnv("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:       getEnv("JWT_ISSUER", "kycgate"),
			JWTAudience:     getEnv("JWT_AUDIENCE", "kycgate-portal"),
			AdminToken:      getEnv("ADMIN_API_TOKEN", ""),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: Database{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: getIntEnv("DATABASE_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Provider: Provider{
			BaseURL:            getEnv("PROVIDER_BASE_URL", "http://localhost:9090"),
			APIKey:             getEnv("PROVIDER_API_KEY", ""),
			Timeout:            getDurationEnv("PROVIDER_TIMEOUT", 10*time.Second),
			BreakerMaxFailures: uint32(getIntEnv("PROVIDER_BREAKER_MAX_FAILURES", 5)),
			BreakerOpenTimeout: getDurationEnv("PROVIDER_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Kafka: Kafka{
			Brokers:    getListEnv("KAFKA_BROKERS"),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "kycgate.audit"),
		},
		Entitlement: Entitlement{
			CacheTTL:         getDurationEnv("ENTITLEMENT_CACHE_TTL", 5*time.Minute),
			DynamicPlanPrice: getFloatEnv("ENTITLEMENT_DYNAMIC_PLAN_PRICE", 1000),
			Pricing:          strings.ToLower(getEnv("ENTITLEMENT_PRICING", PricingFallback)),
		},
		Verification: Verification{
			SubjectHashKey: getEnv("VERIFICATION_SUBJECT_HASH_KEY", ""),
			HistoryLimit:   getIntEnv("VERIFICATION_HISTORY_LIMIT", 50),
		},
		RateLimit: RateLimit{
			Disabled:               getBoolEnv("RATELIMIT_DISABLED", false),
			VerificationsPerWindow: getIntEnv("RATELIMIT_VERIFICATIONS_PER_WINDOW", 30),
			Window:                 getDurationEnv("RATELIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Entitlement.Pricing {
	case PricingFallback, PricingCatalog:
	default:
		return errors.New("ENTITLEMENT_PRICING must be fallback or catalog")
	}
	if c.Entitlement.DynamicPlanPrice < 0 {
		return errors.New("ENTITLEMENT_DYNAMIC_PLAN_PRICE must be non-negative")
	}
	if c.IsProduction() {
		if c.Server.JWTSigningKey == devSigningKey {
			return errors.New("JWT_SIGNING_KEY must be set in production")
		}
		if c.Server.AdminToken == "" {
			return errors.New("ADMIN_API_TOKEN must be set in production")
		}
		if len(c.Verification.SubjectHashKey) < 16 {
			return errors.New("VERIFICATION_SUBJECT_HASH_KEY must be at least 16 bytes in production")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
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
