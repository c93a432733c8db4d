// Package relay provides configuration helpers that define runtime
// defaults, validation, and rate-limiting parameters for the relay
// service.
package relay

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig defines the parameters for per-publisher command rate
// limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings.
type Config struct {
	// TCPAddr is the listen address for the line-oriented protocol.
	TCPAddr string
	// HTTPAddr is the listen address for the WebSocket transport and the
	// health endpoint. Empty disables the HTTP listener.
	HTTPAddr string
	// RateLimit throttles publisher commands per connection.
	RateLimit RateLimitConfig
	// ShutdownTimeout bounds how long Shutdown waits for workers to exit.
	ShutdownTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		TCPAddr:  ":9210",
		HTTPAddr: ":8080",
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.TCPAddr == "" {
		cfg.TCPAddr = ":9210"
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	return cfg
}

// NewConfig creates a Config instance populated with default values for
// all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	// Load RELAY_TCP_ADDR
	if addr := os.Getenv("RELAY_TCP_ADDR"); addr != "" {
		cfg.TCPAddr = addr
	}

	// Load RELAY_HTTP_ADDR ("off" disables the HTTP listener)
	if addr, ok := os.LookupEnv("RELAY_HTTP_ADDR"); ok {
		if addr == "off" {
			cfg.HTTPAddr = ""
		} else {
			cfg.HTTPAddr = addr
		}
	}

	// Load RELAY_RATE_BURST
	if burst := os.Getenv("RELAY_RATE_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	// Load RELAY_RATE_REFILL_INTERVAL (seconds)
	if interval := os.Getenv("RELAY_RATE_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSecondsValue(interval, cfg.RateLimit.RefillInterval)
	}

	// Load RELAY_SHUTDOWN_TIMEOUT (seconds)
	if timeout := os.Getenv("RELAY_SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseSecondsValue(timeout, cfg.ShutdownTimeout)
	}

	sanitized := sanitizeConfig(cfg)
	return &sanitized
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSecondsValue(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
