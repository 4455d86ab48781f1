// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package config

import (
	"os"
	"time"

	"github.com/tomtom215/basketrec/internal/logging"
	"github.com/tomtom215/basketrec/internal/recommend"
	"github.com/tomtom215/basketrec/internal/recommend/adjust"
	"github.com/tomtom215/basketrec/internal/recommend/candidate"
	"github.com/tomtom215/basketrec/internal/recommend/catalog"
	"github.com/tomtom215/basketrec/internal/recommend/ranking"
	"github.com/tomtom215/basketrec/internal/tracing"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional config.yaml (or CONFIG_PATH)
//  3. Environment Variables: override any mapped setting
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cache     CacheConfig     `koanf:"cache"`
	Dispatch  DispatchConfig  `koanf:"dispatch"`
	Tracing   TracingConfig   `koanf:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production" (default: "development")
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RecommendConfig holds the rule index location, catalog sources and
// pipeline parameters.
//
// Environment Variables:
//   - RULE_INDEX_PATH: serialized rule index (required)
//   - RECOMMEND_TABLES_PATH: popularity tables JSON (optional)
//   - RECOMMEND_USERS_PATH: user profiles JSON (optional)
//   - RECOMMEND_CATALOG_DIR: badger catalog directory (optional, wins over the JSON files)
//   - RECOMMEND_MATCH_THRESHOLD: context match threshold in [0, 1] (default: 0.6)
//   - RECOMMEND_DECAY_L1 .. RECOMMEND_DECAY_L5: per-level decay overrides
//   - RECOMMEND_WEIGHT_RULE, _BEHAVIOR, _PREFERENCE, _LIFECYCLE: fusion weights
//   - RECOMMEND_DEFAULT_K, RECOMMEND_MAX_K: top_k limits (default: 10, 100)
type RecommendConfig struct {
	IndexPath  string `koanf:"index_path"`
	TablesPath string `koanf:"tables_path"`
	UsersPath  string `koanf:"users_path"`
	CatalogDir string `koanf:"catalog_dir"`

	MatchThreshold   float64 `koanf:"match_threshold"`
	MaxAntecedentLen int     `koanf:"max_antecedent_len"`
	MaxBasket        int     `koanf:"max_basket"`

	// Decays overrides the hierarchy decay by level name (L1..L5).
	Decays map[string]float64 `koanf:"decays"`

	Weights      ranking.Weights `koanf:"weights"`
	MinRuleSlots int             `koanf:"min_rule_slots"`

	Lifecycle    map[string]adjust.Policy `koanf:"lifecycle"`
	UserDefaults catalog.UserDefaults     `koanf:"user_defaults"`

	PoolFactor        int `koanf:"pool_factor"`
	DefaultK          int `koanf:"default_k"`
	MaxK              int `koanf:"max_k"`
	HistoryBasketSize int `koanf:"history_basket_size"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled         bool          `koanf:"enabled"`
	TTL             time.Duration `koanf:"ttl"`
	MaxEntries      int           `koanf:"max_entries"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// DispatchConfig bounds pipeline execution.
type DispatchConfig struct {
	MaxConcurrent       int           `koanf:"max_concurrent"`
	QueueTimeout        time.Duration `koanf:"queue_timeout"`
	Timeout             time.Duration `koanf:"timeout"`
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Exporter    string  `koanf:"exporter"`
	SampleRatio float64 `koanf:"sample_ratio"`
	ServiceName string  `koanf:"service_name"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// LoggingOptions converts the logging section for logging.Init.
func (c *Config) LoggingOptions() logging.Config {
	out := logging.DefaultConfig()
	out.Level = c.Logging.Level
	out.Format = c.Logging.Format
	out.Caller = c.Logging.Caller
	out.Output = os.Stderr
	return out
}

// RecommenderOptions converts the recommend and cache sections into the
// recommender configuration.
func (c *Config) RecommenderOptions() *recommend.Config {
	rc := c.Recommend
	out := &recommend.Config{
		Candidate: candidate.Config{
			MatchThreshold:   rc.MatchThreshold,
			MaxAntecedentLen: rc.MaxAntecedentLen,
			MaxBasket:        rc.MaxBasket,
		},
		Ranking: ranking.Config{
			Weights:      rc.Weights,
			MinRuleSlots: rc.MinRuleSlots,
		},
		PoolFactor: rc.PoolFactor,
		Limits: recommend.LimitsConfig{
			DefaultK:          rc.DefaultK,
			MaxK:              rc.MaxK,
			HistoryBasketSize: rc.HistoryBasketSize,
		},
		Cache: recommend.CacheConfig{
			Enabled:    c.Cache.Enabled,
			TTL:        c.Cache.TTL,
			MaxEntries: c.Cache.MaxEntries,
		},
	}
	if len(rc.Decays) > 0 {
		out.Decays = make(map[string]float64, len(rc.Decays))
		for level, d := range rc.Decays {
			out.Decays[level] = d
		}
	}
	if len(rc.Lifecycle) > 0 {
		out.Lifecycle = make(map[string]adjust.Policy, len(rc.Lifecycle))
		for stage, p := range rc.Lifecycle {
			out.Lifecycle[stage] = p
		}
	}
	return out
}

// DispatcherOptions converts the dispatch section.
func (c *Config) DispatcherOptions() recommend.DispatchConfig {
	d := c.Dispatch
	return recommend.DispatchConfig{
		MaxConcurrent: d.MaxConcurrent,
		QueueTimeout:  d.QueueTimeout,
		Timeout:       d.Timeout,
		Breaker: recommend.BreakerConfig{
			MaxRequests:  d.BreakerMaxRequests,
			Interval:     d.BreakerInterval,
			OpenTimeout:  d.BreakerOpenTimeout,
			FailureRatio: d.BreakerFailureRatio,
			MinRequests:  d.BreakerMinRequests,
		},
	}
}

// TracingOptions converts the tracing section. version is the build version.
func (c *Config) TracingOptions(version string) tracing.Config {
	return tracing.Config{
		ServiceName:    c.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    c.Server.Environment,
		Exporter:       c.Tracing.Exporter,
		SampleRatio:    c.Tracing.SampleRatio,
	}
}
