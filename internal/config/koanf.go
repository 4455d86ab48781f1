// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/basketrec/internal/recommend"
	"github.com/tomtom215/basketrec/internal/recommend/adjust"
	"github.com/tomtom215/basketrec/internal/recommend/candidate"
	"github.com/tomtom215/basketrec/internal/recommend/catalog"
	"github.com/tomtom215/basketrec/internal/recommend/ranking"
	"github.com/tomtom215/basketrec/internal/tracing"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/basketrec/config.yaml",
	"/etc/basketrec/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. These are applied
// first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	cand := candidate.DefaultConfig()
	rank := ranking.DefaultConfig()
	limits := recommend.DefaultConfig().Limits
	dispatch := recommend.DefaultDispatchConfig()

	return &Config{
		Server: ServerConfig{
			Port:            8090,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:     600,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			IndexPath:         "/data/rules.json.gz",
			MatchThreshold:    cand.MatchThreshold,
			MaxAntecedentLen:  cand.MaxAntecedentLen,
			MaxBasket:         cand.MaxBasket,
			Weights:           rank.Weights,
			MinRuleSlots:      rank.MinRuleSlots,
			Lifecycle:         adjust.DefaultPolicies(),
			UserDefaults:      catalog.DefaultUserDefaults(),
			PoolFactor:        3,
			DefaultK:          limits.DefaultK,
			MaxK:              limits.MaxK,
			HistoryBasketSize: limits.HistoryBasketSize,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             5 * time.Minute,
			MaxEntries:      10000,
			CleanupInterval: time.Minute,
		},
		Dispatch: DispatchConfig{
			MaxConcurrent:       dispatch.MaxConcurrent,
			QueueTimeout:        dispatch.QueueTimeout,
			Timeout:             dispatch.Timeout,
			BreakerMaxRequests:  dispatch.Breaker.MaxRequests,
			BreakerInterval:     dispatch.Breaker.Interval,
			BreakerOpenTimeout:  dispatch.Breaker.OpenTimeout,
			BreakerFailureRatio: dispatch.Breaker.FailureRatio,
			BreakerMinRequests:  dispatch.Breaker.MinRequests,
		},
		Tracing: TracingConfig{
			Exporter:    tracing.ExporterNone,
			SampleRatio: 1.0,
			ServiceName: "basketrec",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
//
// Precedence is ENV > File > Defaults. Only mapped environment variables are
// read, so unrelated variables never leak into the configuration.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
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

// findConfigFile returns the first existing config file, or "".
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Decay keys keep the upper-case level names used by the hierarchy.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Recommendation engine
	"rule_index_path":                      "recommend.index_path",
	"recommend_tables_path":                "recommend.tables_path",
	"recommend_users_path":                 "recommend.users_path",
	"recommend_catalog_dir":                "recommend.catalog_dir",
	"recommend_match_threshold":            "recommend.match_threshold",
	"recommend_max_antecedent_len":         "recommend.max_antecedent_len",
	"recommend_max_basket":                 "recommend.max_basket",
	"recommend_decay_l1":                   "recommend.decays.L1",
	"recommend_decay_l2":                   "recommend.decays.L2",
	"recommend_decay_l3":                   "recommend.decays.L3",
	"recommend_decay_l4":                   "recommend.decays.L4",
	"recommend_decay_l5":                   "recommend.decays.L5",
	"recommend_weight_rule":                "recommend.weights.rule",
	"recommend_weight_behavior":            "recommend.weights.behavior",
	"recommend_weight_preference":          "recommend.weights.preference",
	"recommend_weight_lifecycle":           "recommend.weights.lifecycle",
	"recommend_min_rule_slots":             "recommend.min_rule_slots",
	"recommend_pool_factor":                "recommend.pool_factor",
	"recommend_default_k":                  "recommend.default_k",
	"recommend_max_k":                      "recommend.max_k",
	"recommend_history_basket_size":        "recommend.history_basket_size",
	"recommend_default_behavior_cluster":   "recommend.user_defaults.behavior_cluster",
	"recommend_default_preference_cluster": "recommend.user_defaults.preference_cluster",
	"recommend_default_lifecycle_stage":    "recommend.user_defaults.lifecycle_stage",

	// Cache
	"cache_enabled":          "cache.enabled",
	"cache_ttl":              "cache.ttl",
	"cache_max_entries":      "cache.max_entries",
	"cache_cleanup_interval": "cache.cleanup_interval",

	// Dispatcher
	"dispatch_max_concurrent":        "dispatch.max_concurrent",
	"dispatch_queue_timeout":         "dispatch.queue_timeout",
	"dispatch_timeout":               "dispatch.timeout",
	"dispatch_breaker_max_requests":  "dispatch.breaker_max_requests",
	"dispatch_breaker_interval":      "dispatch.breaker_interval",
	"dispatch_breaker_open_timeout":  "dispatch.breaker_open_timeout",
	"dispatch_breaker_failure_ratio": "dispatch.breaker_failure_ratio",
	"dispatch_breaker_min_requests":  "dispatch.breaker_min_requests",

	// Tracing
	"tracing_exporter":     "tracing.exporter",
	"tracing_sample_ratio": "tracing.sample_ratio",
	"tracing_service_name": "tracing.service_name",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - RULE_INDEX_PATH -> recommend.index_path
//   - RECOMMEND_DECAY_L5 -> recommend.decays.L5
//
// Unmapped keys return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
