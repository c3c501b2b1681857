// Package config builds service configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything cmd/server needs to wire the service.
type Config struct {
	Addr string

	// DatabaseURL enables the Postgres stores; empty falls back to the
	// in-memory stores (development and tests only).
	DatabaseURL string

	Redis RedisConfig

	// KafkaBrokers enables the audit fan-out sink; empty disables it.
	KafkaBrokers []string
	AuditTopic   string

	Provider ProviderConfig

	JWTSigningKey string
}

// RedisConfig controls the optional active-policy cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProviderConfig points at the AI moderation provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("PORTAL_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		AuditTopic: envOr("AUDIT_TOPIC", "portal.audit.events"),
		Provider: ProviderConfig{
			BaseURL: envOr("AI_PROVIDER_URL", "https://api.openai.com"),
			APIKey:  os.Getenv("AI_PROVIDER_API_KEY"),
			Timeout: 30 * time.Second,
		},
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
