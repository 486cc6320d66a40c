// Package config loads Lattice's server configuration from environment
// variables (optionally via a .env file), with validation and
// production-ready defaults, mirroring the teacher's database config
// loader.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full set of environment-derived knobs the server needs.
type Config struct {
	HTTPPort string
	GinMode  string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	DBMaxOpenConns int
	DBMaxIdleConns int

	NonceCacheCapacity int
	NonceTTL           time.Duration
	RateLimitSweepEvery time.Duration
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxOpen, err := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	nonceCap, err := strconv.Atoi(getEnvOrDefault("NONCE_CACHE_CAPACITY", "100000"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid NONCE_CACHE_CAPACITY: %w", err)
	}
	nonceTTL, err := time.ParseDuration(getEnvOrDefault("NONCE_TTL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid NONCE_TTL: %w", err)
	}
	sweepEvery, err := time.ParseDuration(getEnvOrDefault("RATE_LIMIT_SWEEP_INTERVAL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_SWEEP_INTERVAL: %w", err)
	}

	cfg := Config{
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		GinMode:  getEnvOrDefault("GIN_MODE", "release"),

		DBHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:     port,
		DBUser:     getEnvOrDefault("DB_USER", "lattice"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvOrDefault("DB_NAME", "lattice"),
		DBSSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),

		DBMaxOpenConns: maxOpen,
		DBMaxIdleConns: maxIdle,

		NonceCacheCapacity:  nonceCap,
		NonceTTL:            nonceTTL,
		RateLimitSweepEvery: sweepEvery,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that defaults alone cannot guarantee.
func (c Config) Validate() error {
	if c.DBMaxIdleConns > c.DBMaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) cannot exceed DB_MAX_OPEN_CONNS (%d)", c.DBMaxIdleConns, c.DBMaxOpenConns)
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.NonceTTL <= 0 {
		return fmt.Errorf("NONCE_TTL must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
