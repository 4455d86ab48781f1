// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package recommend

import (
	"fmt"
	"time"

	"github.com/tomtom215/basketrec/internal/recommend/adjust"
	"github.com/tomtom215/basketrec/internal/recommend/candidate"
	"github.com/tomtom215/basketrec/internal/recommend/ranking"
)

// Config holds recommender parameters.
type Config struct {
	// Candidate configures rule recall.
	Candidate candidate.Config `json:"candidate"`

	// Decays overrides per-level decay factors by level name. Levels not
	// named keep the hierarchy default.
	Decays map[string]float64 `json:"decays,omitempty"`

	// Ranking configures signal fusion.
	Ranking ranking.Config `json:"ranking"`

	// Lifecycle overrides lifecycle policies. Nil uses adjust.DefaultPolicies.
	Lifecycle map[string]adjust.Policy `json:"lifecycle,omitempty"`

	// PoolFactor sizes recall pools relative to top_k.
	// Default: 3
	PoolFactor int `json:"pool_factor"`

	Limits LimitsConfig `json:"limits"`
	Cache  CacheConfig  `json:"cache"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultK is the number of recommendations when the request leaves it unset.
	// Default: 10.
	DefaultK int `json:"default_k"`

	// MaxK is the maximum allowed top_k.
	// Default: 100.
	MaxK int `json:"max_k"`

	// HistoryBasketSize is how many recent purchases form the basket for
	// history-based requests.
	// Default: 10.
	HistoryBasketSize int `json:"history_basket_size"`
}

// CacheConfig contains response caching parameters.
type CacheConfig struct {
	// Enabled controls whether caching is active.
	// Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries is the maximum number of cached entries.
	// Default: 10000.
	MaxEntries int `json:"max_entries"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Candidate:  candidate.DefaultConfig(),
		Ranking:    ranking.DefaultConfig(),
		PoolFactor: 3,
		Limits: LimitsConfig{
			DefaultK:          10,
			MaxK:              100,
			HistoryBasketSize: 10,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Candidate.Validate(); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	if err := c.Ranking.Weights.Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if c.Ranking.MinRuleSlots < 0 {
		return fmt.Errorf("ranking.min_rule_slots must be non-negative, got %d", c.Ranking.MinRuleSlots)
	}
	for level, d := range c.Decays {
		if d < 0 {
			return fmt.Errorf("decays.%s must be non-negative, got %f", level, d)
		}
	}
	for stage, p := range c.Lifecycle {
		if p.HeadBoost < 0 || p.TailBoost < 0 {
			return fmt.Errorf("lifecycle.%s boosts must be non-negative", stage)
		}
	}
	if c.PoolFactor < 1 {
		return fmt.Errorf("pool_factor must be positive, got %d", c.PoolFactor)
	}

	if c.Limits.DefaultK < 1 {
		return fmt.Errorf("limits.default_k must be positive, got %d", c.Limits.DefaultK)
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		return fmt.Errorf("limits.max_k must be >= limits.default_k, got %d < %d", c.Limits.MaxK, c.Limits.DefaultK)
	}
	if c.Limits.HistoryBasketSize < 1 {
		return fmt.Errorf("limits.history_basket_size must be positive, got %d", c.Limits.HistoryBasketSize)
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
		}
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	if c.Decays != nil {
		out.Decays = make(map[string]float64, len(c.Decays))
		for k, v := range c.Decays {
			out.Decays[k] = v
		}
	}
	if c.Lifecycle != nil {
		out.Lifecycle = make(map[string]adjust.Policy, len(c.Lifecycle))
		for k, v := range c.Lifecycle {
			out.Lifecycle[k] = v
		}
	}
	return &out
}
