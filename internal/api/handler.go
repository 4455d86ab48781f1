// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package api

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/basketrec/internal/recommend"
)

// Recommender answers recommendation requests. *recommend.Dispatcher in
// production; *recommend.Recommender works when no dispatch limits are wanted.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// StatsSource reports the loaded index and tables.
type StatsSource interface {
	Stats() recommend.Stats
}

// PurchaseHistory returns a user's most recent purchases, newest first.
type PurchaseHistory interface {
	RecentItems(ctx context.Context, userID, limit int) ([]int, error)
}

// BreakerState reports the dispatcher's circuit breaker state.
type BreakerState interface {
	State() string
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Recommender Recommender
	Stats       StatsSource

	// History backs GET /recommendations/user/{userID}. Nil disables the
	// endpoint (it answers 503).
	History PurchaseHistory

	// HistoryBasketSize bounds the basket derived from history.
	HistoryBasketSize int

	// Breaker is optional; when set its state is reported by /health/ready.
	Breaker BreakerState

	Version string
}

// Handler serves the recommendation API.
type Handler struct {
	recommender       Recommender
	stats             StatsSource
	history           PurchaseHistory
	historyBasketSize int
	breaker           BreakerState
	version           string
	startTime         time.Time
}

// NewHandler validates cfg and builds a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Recommender == nil {
		return nil, errors.New("api: recommender is required")
	}
	if cfg.Stats == nil {
		return nil, errors.New("api: stats source is required")
	}
	size := cfg.HistoryBasketSize
	if size <= 0 {
		size = recommend.DefaultConfig().Limits.HistoryBasketSize
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		recommender:       cfg.Recommender,
		stats:             cfg.Stats,
		history:           cfg.History,
		historyBasketSize: size,
		breaker:           cfg.Breaker,
		version:           version,
		startTime:         time.Now(),
	}, nil
}
