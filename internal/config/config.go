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
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	AppEnv string

	HTTPAddr string

	// Storage
	StoreDriver      string
	DatabaseURL      string
	MigrateOnStart   bool
	DBRetryAttempts  int
	DBRetryBaseDelay time.Duration
	// ids 1..N are registered in the memory directory
	MemorySeedUsers      int
	MemorySeedCategories int

	JWTSecret string
	JWTIssuer string

	// RabbitMQ
	RabbitURL         string
	RabbitExchange    string
	RabbitConfirmWait time.Duration
	OutboxEnabled     bool
	OutboxInterval    time.Duration

	// Redis & Caching
	RedisURL        string
	CacheTTLDetails time.Duration // GetPublished
	CacheTTLList    time.Duration // SearchPublic (first page)

	// Stats collector
	StatsURL     string
	StatsTimeout time.Duration
	StatsWorkers int
	StatsQueue   int

	// Rate Limiting
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	HTTPShutdownTimeout time.Duration
}

func (c *Config) IsProd() bool { return c.AppEnv == "prod" }

func Load() (*Config, error) {
	// missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", StorePostgres))
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.MigrateOnStart = getBool("MIGRATE_ON_START", false)
	cfg.DBRetryAttempts = getInt("DB_RETRY_ATTEMPTS", 3)
	cfg.DBRetryBaseDelay = getDuration("DB_RETRY_BASE_DELAY", 50*time.Millisecond)
	cfg.MemorySeedUsers = getInt("MEMORY_SEED_USERS", 100)
	cfg.MemorySeedCategories = getInt("MEMORY_SEED_CATEGORIES", 20)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "ewm.events")
	cfg.RabbitConfirmWait = getDuration("RABBIT_CONFIRM_WAIT", 5*time.Second)
	cfg.OutboxEnabled = getBool("OUTBOX_ENABLED", true)
	cfg.OutboxInterval = getDuration("OUTBOX_INTERVAL", 2*time.Second)

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.CacheTTLDetails = getDuration("CACHE_TTL_DETAILS", 5*time.Minute)
	cfg.CacheTTLList = getDuration("CACHE_TTL_LIST", 15*time.Second)

	cfg.StatsURL = getEnv("STATS_URL", "http://localhost:9090")
	cfg.StatsTimeout = getDuration("STATS_TIMEOUT", 2*time.Second)
	cfg.StatsWorkers = getInt("STATS_WORKERS", 4)
	cfg.StatsQueue = getInt("STATS_QUEUE", 1024)

	// 100 reqs / 1 min per IP
	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getInt("RATE_LIMIT_RPM", 100)
	cfg.RLWindow = getDuration("RL_IP_WINDOW", time.Minute)

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	cfg.HTTPShutdownTimeout = getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DATABASE_URL (required when STORE_DRIVER=postgres)")
		}
	case StoreMemory:
		if c.IsProd() {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed when APP_ENV=prod")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (want memory or postgres)", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		if c.IsProd() {
			return fmt.Errorf("missing JWT_SECRET")
		}
		c.JWTSecret = "dev-secret"
	}
	if c.IsProd() && c.RabbitURL == "" && c.OutboxEnabled {
		return fmt.Errorf("missing RABBIT_URL (required when APP_ENV=prod and OUTBOX_ENABLED)")
	}
	if c.DBRetryAttempts < 0 {
		return fmt.Errorf("DB_RETRY_ATTEMPTS must be >= 0")
	}
	if c.StatsWorkers <= 0 || c.StatsQueue <= 0 {
		return fmt.Errorf("STATS_WORKERS and STATS_QUEUE must be positive")
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
