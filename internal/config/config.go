package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Cfg is the global configuration loaded at startup.
var Cfg Config

// Config holds all application configuration.
type Config struct {
	// Server
	Port string

	// Alert file store. Empty means the process working directory.
	StorageDir string

	// Market data
	MarketDataURL string
	UserAgent     string
	QuoteCacheTTL time.Duration

	// Daily check scheduler
	CheckEnabled bool
	CheckSecret  string

	// Redis (candle cache + signal pub/sub)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Accounts (optional; disabled when DATABASE_URL is unset)
	DatabaseURL string
	SessionKey  string

	// Web push
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
}

// Load reads .env (if present) and populates Cfg from environment variables.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables")
	}

	Cfg = Config{
		Port: envOr("PORT", "8080"),

		StorageDir: resolveStorageDir(),

		MarketDataURL: envOr("MARKET_DATA_URL", "https://query1.finance.yahoo.com"),
		UserAgent:     envOr("USER_AGENT", "Mozilla/5.0 (compatible; MomentumSignalBot/1.0)"),
		QuoteCacheTTL: envDuration("QUOTE_CACHE_TTL", 15*time.Minute),

		CheckEnabled: envBool("CHECK_ENABLED", true),
		CheckSecret:  os.Getenv("CHECK_SECRET"),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SessionKey:  envOr("SESSION_KEY", "secret-key-change-in-production"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		PushSubscriber:  envOr("PUSH_SUBSCRIBER", "mailto:admin@example.com"),
	}

	log.Printf("config: loaded (port=%s, storage=%s, check=%v)",
		Cfg.Port, storageLabel(Cfg.StorageDir), Cfg.CheckEnabled)
}

// resolveStorageDir returns the directory for alerts.json. STORAGE_PATH wins;
// STORAGE_DIR is honored as a legacy name. Empty means the working directory.
func resolveStorageDir() string {
	if dir := os.Getenv("STORAGE_PATH"); dir != "" {
		return dir
	}
	return os.Getenv("STORAGE_DIR")
}

func storageLabel(dir string) string {
	if dir == "" {
		return "(working dir)"
	}
	return dir
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
