// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

// Package config provides layered application configuration: built-in
// defaults, an optional YAML file, then environment variables, with
// fail-fast validation at load time.
package config

import (
	"fmt"
	"time"

	"github.com/sortie-app/sortie/internal/logging"
	"github.com/sortie-app/sortie/internal/recommend"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server" json:"server"`
	API        APIConfig        `koanf:"api" json:"api"`
	Logging    logging.Config   `koanf:"logging" json:"logging"`
	Recommend  recommend.Config `koanf:"recommend" json:"recommend"`
	TraceStore TraceStoreConfig `koanf:"trace_store" json:"trace_store"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host" json:"host"`

	// Port is the listen port. Default: 8080
	Port int `koanf:"port" json:"port"`

	// ReadTimeout bounds reading the full request. Default: 10s
	ReadTimeout time.Duration `koanf:"read_timeout" json:"read_timeout"`

	// WriteTimeout bounds writing the full response. Default: 30s
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout"`

	// ShutdownTimeout bounds the graceful drain on shutdown. Default: 15s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

// APIConfig holds API surface settings.
type APIConfig struct {
	// RateLimitReqs is the per-IP request budget per window. Default: 60
	RateLimitReqs int `koanf:"rate_limit_reqs" json:"rate_limit_reqs"`

	// RateLimitWindow is the rate-limit window. Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window" json:"rate_limit_window"`

	// MaxBodyBytes caps the request body size. Default: 4 MiB
	MaxBodyBytes int64 `koanf:"max_body_bytes" json:"max_body_bytes"`
}

// TraceStoreConfig holds ranking-trace persistence settings.
type TraceStoreConfig struct {
	// Enabled turns on DuckDB-backed trace persistence. Default: false
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Path is the DuckDB database file. Empty means in-memory, which loses
	// traces on restart. Default: sortie-traces.db
	Path string `koanf:"path" json:"path"`

	// Retention is how long traces are kept before purging. Default: 168h
	Retention time.Duration `koanf:"retention" json:"retention"`

	// PurgeInterval is how often the retention purge runs. Default: 1h
	PurgeInterval time.Duration `koanf:"purge_interval" json:"purge_interval"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		API: APIConfig{
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			MaxBodyBytes:    4 << 20,
		},
		Logging:   logging.DefaultConfig(),
		Recommend: *recommend.DefaultConfig(),
		TraceStore: TraceStoreConfig{
			Enabled:       false,
			Path:          "sortie-traces.db",
			Retention:     7 * 24 * time.Hour,
			PurgeInterval: time.Hour,
		},
	}
}

// Validate checks the configuration, including the embedded engine
// configuration, and fails fast on the first problem.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive, got %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive, got %v", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}

	if c.API.RateLimitReqs < 1 {
		return fmt.Errorf("api.rate_limit_reqs must be positive, got %d", c.API.RateLimitReqs)
	}
	if c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("api.rate_limit_window must be positive, got %v", c.API.RateLimitWindow)
	}
	if c.API.MaxBodyBytes < 1 {
		return fmt.Errorf("api.max_body_bytes must be positive, got %d", c.API.MaxBodyBytes)
	}

	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	if c.TraceStore.Enabled {
		if c.TraceStore.Retention <= 0 {
			return fmt.Errorf("trace_store.retention must be positive, got %v", c.TraceStore.Retention)
		}
		if c.TraceStore.PurgeInterval <= 0 {
			return fmt.Errorf("trace_store.purge_interval must be positive, got %v", c.TraceStore.PurgeInterval)
		}
	}

	return nil
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
