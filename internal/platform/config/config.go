// Package config builds runtime configuration from the environment so main
// stays lean. Unset values fall back to development defaults; an empty
// DATABASE_URL selects the in-memory store.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures the process-level configuration.
type Server struct {
	Addr           string
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   []string
	AuditTopic     string
	JWTSigningKey  string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// FromEnv reads MEDCAT_* variables and applies defaults.
func FromEnv() Server {
	cfg := Server{
		Addr:           getenv("MEDCAT_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AuditTopic:     getenv("MEDCAT_AUDIT_TOPIC", "medcat.audit"),
		JWTSigningKey:  getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RequestTimeout: getDuration("MEDCAT_REQUEST_TIMEOUT", 30*time.Second),
		CacheTTL:       getDuration("MEDCAT_CACHE_TTL", 30*time.Second),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
