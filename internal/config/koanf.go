// Sortie - Local Activity Recommendation Engine
// Copyright 2026 Sortie Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sortie-app/sortie

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sortie/config.yaml",
	"/etc/sortie/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config
// file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if it exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. The result is validated before being
// returned, so a bad weight file or an out-of-range parameter fails here and
// cannot silently degrade every request.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// SORTIE_LOG_LEVEL -> logging.level, SORTIE_HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths. Returns
// the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings is the explicit environment variable table. Unmapped variables
// are ignored so random environment noise cannot pollute the configuration.
var envMappings = map[string]string{
	// Server
	"sortie_http_host":        "server.host",
	"sortie_http_port":        "server.port",
	"sortie_read_timeout":     "server.read_timeout",
	"sortie_write_timeout":    "server.write_timeout",
	"sortie_shutdown_timeout": "server.shutdown_timeout",

	// API
	"sortie_rate_limit_reqs":   "api.rate_limit_reqs",
	"sortie_rate_limit_window": "api.rate_limit_window",
	"sortie_max_body_bytes":    "api.max_body_bytes",

	// Logging
	"sortie_log_level":  "logging.level",
	"sortie_log_format": "logging.format",
	"sortie_log_caller": "logging.caller",

	// Engine
	"sortie_scoring_mode":               "recommend.mode",
	"sortie_debias_alpha":               "recommend.debias.alpha",
	"sortie_diversity_lambda":           "recommend.diversity.lambda",
	"sortie_diversity_pool_size":        "recommend.diversity.pool_size",
	"sortie_slate_size":                 "recommend.diversity.slate_size",
	"sortie_wildcard_novelty_threshold": "recommend.wildcard.novelty_threshold",
	"sortie_wildcard_score_floor":       "recommend.wildcard.score_floor",
	"sortie_close_easy_enabled":         "recommend.close_easy.enabled",
	"sortie_cold_start_min_pool":        "recommend.cold_start.min_pool",
	"sortie_cold_start_category_cap":    "recommend.cold_start.per_category_cap",
	"sortie_cold_start_total_cap":       "recommend.cold_start.total_cap",
	"sortie_cold_start_query_timeout":   "recommend.cold_start.query_timeout",
	"sortie_policy_lookup_timeout":      "recommend.policy.lookup_timeout",
	"sortie_max_candidates":             "recommend.limits.max_candidates",
	"sortie_workers":                    "recommend.limits.workers",

	// Trace store
	"sortie_trace_store_enabled":        "trace_store.enabled",
	"sortie_trace_store_path":           "trace_store.path",
	"sortie_trace_store_retention":      "trace_store.retention",
	"sortie_trace_store_purge_interval": "trace_store.purge_interval",
}

// envTransformFunc maps environment variable names to koanf config paths.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
