// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Database configures the PostgreSQL connection. An empty DSN selects the
// in-memory stores (local development and tests).
type Database struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis configures the optional read cache. An empty URL disables caching.
type Redis struct {
	URL string
	TTL time.Duration
}

// Collector points at the upstream sources manifest.
type Collector struct {
	SourcesFile string
}

// Config is the full application configuration.
type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	Collector Collector
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Server: Server{
			Addr: envOr("FACREG_ADDR", ":8080"),
		},
		Database: Database{
			DSN:          os.Getenv("FACREG_DATABASE_URL"),
			MaxOpenConns: 25,
			MaxIdleConns: 10,
		},
		Redis: Redis{
			URL: os.Getenv("FACREG_REDIS_URL"),
			TTL: 5 * time.Minute,
		},
		Collector: Collector{
			SourcesFile: os.Getenv("FACREG_SOURCES_FILE"),
		},
	}
	if ttl := os.Getenv("FACREG_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Redis.TTL = d
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
