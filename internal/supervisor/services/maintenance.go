// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrec/internal/metrics"
)

// ExpiringCache is the janitor's view of the response cache.
type ExpiringCache interface {
	// CleanupExpired removes expired entries and returns how many it removed.
	CleanupExpired() int
}

// CacheJanitorService purges expired recommendation responses on a ticker.
// The LRU drops expired entries lazily on Get; the janitor reclaims memory
// held by entries nobody asks for again.
type CacheJanitorService struct {
	cache    ExpiringCache
	interval time.Duration
	logger   zerolog.Logger
}

// NewCacheJanitorService creates a janitor. A non-positive interval means
// one minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCacheJanitorService(cache ExpiringCache, interval time.Duration, logger zerolog.Logger) *CacheJanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheJanitorService{
		cache:    cache,
		interval: interval,
		logger:   logger.With().Str("service", "cache-janitor").Logger(),
	}
}

// Serve implements suture.Service.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *CacheJanitorService) sweep() {
	if n := s.cache.CleanupExpired(); n > 0 {
		metrics.RecordCacheExpired(n)
		s.logger.Debug().Int("removed", n).Msg("expired cache entries removed")
	}
}

// String implements fmt.Stringer.
func (s *CacheJanitorService) String() string {
	return "cache-janitor"
}

// GarbageCollector reclaims space in an on-disk store.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// CatalogGCService runs badger value log GC on the catalog store. GC errors
// are logged and retried on the next tick; they never restart the service.
type CatalogGCService struct {
	store        GarbageCollector
	interval     time.Duration
	discardRatio float64
	logger       zerolog.Logger
}

// NewCatalogGCService creates the GC runner. Defaults: interval 10m, ratio 0.5.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCatalogGCService(store GarbageCollector, interval time.Duration, discardRatio float64, logger zerolog.Logger) *CatalogGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &CatalogGCService{
		store:        store,
		interval:     interval,
		discardRatio: discardRatio,
		logger:       logger.With().Str("service", "catalog-gc").Logger(),
	}
}

// Serve implements suture.Service.
func (s *CatalogGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.store.RunGC(s.discardRatio); err != nil {
				s.logger.Warn().Err(err).Msg("catalog GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("catalog GC finished")
		}
	}
}

// String implements fmt.Stringer.
func (s *CatalogGCService) String() string {
	return "catalog-gc"
}
