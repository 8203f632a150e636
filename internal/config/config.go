package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string
	SQLitePath  string

	// Event transport
	KafkaBrokers  []string
	ConsumerGroup string

	// Decision engine: "hardened" (default), "naive", or "agent"
	EngineMode string
	AgentURL   string

	// Optional YAML override for the classification keyword tables
	RulesPath string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		SQLitePath:    getEnv("SQLITE_PATH", "deskroute.db"),
		ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "deskroute-workers"),
		EngineMode:    getEnv("ENGINE_MODE", "hardened"),
		AgentURL:      os.Getenv("AGENT_URL"),
		RulesPath:     os.Getenv("RULES_PATH"),
	}

	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", "localhost:9092"))
	cfg.RateLimitWhitelist = splitList(os.Getenv("RATE_LIMIT_WHITELIST"))

	switch cfg.EngineMode {
	case "hardened", "naive", "agent":
	default:
		panic("ENGINE_MODE must be hardened, naive, or agent")
	}

	// In production, require the backing services
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.EngineMode == "agent" && cfg.AgentURL == "" {
			panic("AGENT_URL is required when ENGINE_MODE=agent")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
