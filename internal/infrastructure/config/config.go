// Package config holds all application configuration, loaded from
// environment variables with an optional YAML profile file.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Pool      PoolConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// PoolConfig holds sandbox pool configuration. Set once at startup;
// the pool has no runtime mutation API.
type PoolConfig struct {
	MaxSandboxes       int    `envconfig:"MAX_SANDBOXES" default:"12"`
	MaxConcurrentTasks int    `envconfig:"MAX_CONCURRENT_TASKS" default:"4"`
	TaskTimeoutMs      int    `envconfig:"TASK_TIMEOUT_MS" default:"30000"`
	IdleReclaimMs      int    `envconfig:"IDLE_RECLAIM_MS" default:"180000"`
	ReapIntervalMs     int    `envconfig:"REAP_INTERVAL_MS" default:"60000"`
	Profile            string `envconfig:"SANDBOX_PROFILE" default:"standard"`
	ProfilePath        string `envconfig:"SANDBOX_PROFILE_PATH" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Pool: PoolConfig{
			MaxSandboxes:       12,
			MaxConcurrentTasks: 4,
			TaskTimeoutMs:      30000,
			IdleReclaimMs:      180000,
			ReapIntervalMs:     60000,
			Profile:            "standard",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
