// Package config provides centralized configuration management for the server.
// It loads configuration from environment variables with defaults and
// validates all settings on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Server    ServerConfig
	Transform TransformConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading the request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining active runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// TransformConfig holds pipeline run settings.
type TransformConfig struct {
	// MaxFileSize is the maximum accepted CSV size in bytes (default: 50MB)
	MaxFileSize int64 `env:"TRANSFORM_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of pipeline runs in flight (default: 8)
	MaxConcurrent int `env:"TRANSFORM_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long a run waits for a free slot (default: 10s)
	MaxWaitTime time.Duration `env:"TRANSFORM_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds pipeline execution of a single run, from the first step
	// to the last. CSV decoding is bounded by MaxFileSize instead (default: 30s)
	Timeout time.Duration `env:"TRANSFORM_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// TransformLimit is requests per minute per IP for the transform endpoint (default: 30)
	TransformLimit int `env:"RATE_LIMIT_TRANSFORM" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on transform routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
