package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	LogLevel    string

	ServerPort int

	DatabaseURL string

	JWTAccessSecret []byte

	AuthHTTPURL string

	KafkaBrokers    []string
	KafkaOrderTopic string

	RedisAddr      string
	ImpactCacheTTL time.Duration

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CheckoutRetryAttempts   int
	CheckoutRetryInterval   time.Duration
	CheckoutFinalizeTimeout time.Duration

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration

	CSRFEnabled bool
}

// Load reads the process environment. A .env file, when present, is applied
// first and never overrides variables that are already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("notice: .env not loaded: %v", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret: []byte(os.Getenv("JWT_SECRET")),

		AuthHTTPURL: os.Getenv("AUTH_URL"),

		KafkaBrokers:    CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: EnvDefault("KAFKA_ORDER_TOPIC", "order_events"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		ImpactCacheTTL: EnvDurationDefault("IMPACT_CACHE_TTL", 5*time.Minute),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		CheckoutRetryAttempts:   EnvIntDefault("CHECKOUT_RETRY_ATTEMPTS", 5),
		CheckoutRetryInterval:   EnvDurationDefault("CHECKOUT_RETRY_INTERVAL", 200*time.Millisecond),
		CheckoutFinalizeTimeout: EnvDurationDefault("CHECKOUT_FINALIZE_TIMEOUT", 30*time.Second),

		ReconcileInterval: EnvDurationDefault("RECONCILE_INTERVAL", 30*time.Second),
		ReconcileGrace:    EnvDurationDefault("RECONCILE_GRACE", time.Minute),

		CSRFEnabled: EnvBoolDefault("CSRF_ENABLED", true),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
