// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/basketrec/internal/tracing"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
		c.validateRecommend,
		c.validateCache,
		c.validateDispatch,
		c.validateTracing,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validEnvironments defines the allowed deployment environments
var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateCORS rejects wildcard origins in production.
func (c *Config) validateCORS() error {
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: CORS_ORIGINS=https://shop.example.com,https://app.example.com")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports whether the CORS configuration should be logged
// as a concern at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// Recommendation limits
const (
	maxTopK       = 1000
	maxPoolFactor = 20
)

func (c *Config) validateRecommend() error {
	rc := &c.Recommend
	if rc.IndexPath == "" {
		return fmt.Errorf("RULE_INDEX_PATH is required")
	}
	if rc.MatchThreshold < 0 || rc.MatchThreshold > 1 {
		return fmt.Errorf("RECOMMEND_MATCH_THRESHOLD must be between 0 and 1")
	}
	if rc.MaxAntecedentLen < 1 {
		return fmt.Errorf("RECOMMEND_MAX_ANTECEDENT_LEN must be positive")
	}
	if rc.MaxBasket < 1 {
		return fmt.Errorf("RECOMMEND_MAX_BASKET must be positive")
	}
	for level, d := range rc.Decays {
		if d < 0 {
			return fmt.Errorf("recommend.decays.%s must be non-negative", level)
		}
	}
	if err := rc.Weights.Validate(); err != nil {
		return fmt.Errorf("RECOMMEND_WEIGHT_*: %w", err)
	}
	if rc.MinRuleSlots < 0 {
		return fmt.Errorf("RECOMMEND_MIN_RULE_SLOTS must be non-negative")
	}
	for stage, p := range rc.Lifecycle {
		if p.HeadBoost < 0 || p.TailBoost < 0 {
			return fmt.Errorf("recommend.lifecycle.%s boosts must be non-negative", stage)
		}
	}
	if rc.PoolFactor < 1 || rc.PoolFactor > maxPoolFactor {
		return fmt.Errorf("RECOMMEND_POOL_FACTOR must be between 1 and %d", maxPoolFactor)
	}
	if rc.DefaultK < 1 || rc.DefaultK > rc.MaxK {
		return fmt.Errorf("RECOMMEND_DEFAULT_K must be between 1 and RECOMMEND_MAX_K")
	}
	if rc.MaxK > maxTopK {
		return fmt.Errorf("RECOMMEND_MAX_K must not exceed %d", maxTopK)
	}
	if rc.HistoryBasketSize < 1 {
		return fmt.Errorf("RECOMMEND_HISTORY_BASKET_SIZE must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when caching is enabled")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive when caching is enabled")
	}
	if c.Cache.CleanupInterval <= 0 {
		return fmt.Errorf("CACHE_CLEANUP_INTERVAL must be positive when caching is enabled")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if err := c.DispatcherOptions().Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}

func (c *Config) validateTracing() error {
	switch c.Tracing.Exporter {
	case tracing.ExporterNone, tracing.ExporterStdout:
	default:
		return fmt.Errorf("TRACING_EXPORTER must be one of: none, stdout")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}
	return nil
}
