// Package config loads application configuration from environment variables.
// A .env file in the working directory is read first when present; real
// environment variables win over its values.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // APP_ENV, e.g. "dev" or "prod"
	Port      string // APP_PORT
	LogLevel  string // LOG_LEVEL: debug, info, warn, error
	LogFormat string // LOG_FORMAT: json or console

	Storage    string // STORAGE_BACKEND: mysql (default) or memory
	MemorySeed string // MEMORY_SEED_PATH, JSON document loaded into the memory backend
	DBUser  string
	DBPass  string // optional
	DBHost  string
	DBPort  string
	DBName  string

	DBAutoMigrate bool // DB_AUTO_MIGRATE, create missing tables on startup

	JWTSecret string // JWT_SECRET, HS256 key for bearer tokens

	DefaultLockMinutes int // DEFAULT_LOCK_MINUTES, used when a tenant has no lock period
	MaxLockMinutes     int // MAX_LOCK_MINUTES, upper bound on any lock period

	ReclaimEnabled   bool          // RECLAIM_ENABLED
	ReclaimSchedule  string        // RECLAIM_SCHEDULE, cron spec
	ReclaimLeaseTTL  time.Duration // RECLAIM_LEASE_TTL, 0 disables the Redis lease
	ReclaimBatchSize int           // RECLAIM_BATCH_SIZE, 0 means unbounded

	RabbitURL    string // RABBITMQ_URL (or AMQP_URL); empty disables events
	AuditEnabled bool   // AUDIT_CONSUMER_ENABLED
	AuditLogPath string // AUDIT_LOG_PATH

	RateLimit RateLimitConfig
}

// Load reads configuration values from the environment.  Required
// variables are enforced by must(); a missing value exits the process.
// Database variables are only required for the mysql backend.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      envStr("APP_PORT", "8080"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),

		Storage:    envStr("STORAGE_BACKEND", StorageMySQL),
		MemorySeed: os.Getenv("MEMORY_SEED_PATH"),

		JWTSecret: must("JWT_SECRET"),

		DefaultLockMinutes: envInt("DEFAULT_LOCK_MINUTES", 30),
		MaxLockMinutes:     envInt("MAX_LOCK_MINUTES", 7*24*60),

		ReclaimEnabled:   envBool("RECLAIM_ENABLED", true),
		ReclaimSchedule:  envStr("RECLAIM_SCHEDULE", "@every 5m"),
		ReclaimLeaseTTL:  envDur("RECLAIM_LEASE_TTL", 4*time.Minute),
		ReclaimBatchSize: envInt("RECLAIM_BATCH_SIZE", 500),

		RabbitURL:    envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		AuditEnabled: envBool("AUDIT_CONSUMER_ENABLED", false),
		AuditLogPath: envStr("AUDIT_LOG_PATH", "logs/unit_audit.log"),

		RateLimit: LoadRateLimitConfig(),
	}
	if cfg.Storage == StorageMySQL {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
		cfg.DBAutoMigrate = envBool("DB_AUTO_MIGRATE", false)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
