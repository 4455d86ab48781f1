// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrec/internal/config"
	"github.com/tomtom215/basketrec/internal/recommend"
	"github.com/tomtom215/basketrec/internal/recommend/catalog"
	"github.com/tomtom215/basketrec/internal/recommend/storage"
)

// engineComponents holds the loaded recommendation stack.
type engineComponents struct {
	Recommender *recommend.Recommender
	Dispatcher  *recommend.Dispatcher

	// Store is the badger catalog, or nil for file-backed deployments.
	Store *catalog.Store
}

// Close releases the catalog store.
func (c *engineComponents) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// catalogSources are the popularity tables and user profiles the recommender
// reads.
type catalogSources struct {
	tables *catalog.Tables
	users  catalog.UserContextLoader
	store  *catalog.Store
}

// initRecommend loads the rule index and catalog and assembles the recommender
// and dispatcher. Any error is fatal for the server: it must not serve
// without an index.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*engineComponents, error) {
	index, meta, err := storage.NewStore(logger).Load(ctx, cfg.Recommend.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("load rule index: %w", err)
	}
	logger.Info().
		Str("path", cfg.Recommend.IndexPath).
		Str("algorithm", meta.Algorithm).
		Str("created_at", meta.CreatedAt).
		Int("contexts", meta.Stats.Contexts).
		Int("rules", meta.Stats.Rules).
		Msg("rule index loaded")

	src, err := loadCatalog(ctx, &cfg.Recommend, logger)
	if err != nil {
		return nil, err
	}

	rec, err := recommend.New(recommend.Deps{
		Index:        index,
		Tables:       src.tables,
		Users:        src.users,
		UserDefaults: cfg.Recommend.UserDefaults,
	}, cfg.RecommenderOptions(), logger)
	if err != nil {
		closeStore(src.store, logger)
		return nil, fmt.Errorf("create recommender: %w", err)
	}

	dispatcher, err := recommend.NewDispatcher(rec, cfg.DispatcherOptions(), logger)
	if err != nil {
		closeStore(src.store, logger)
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	return &engineComponents{Recommender: rec, Dispatcher: dispatcher, Store: src.store}, nil
}

// loadCatalog reads tables and users from the badger catalog when
// CatalogDir is set, otherwise from the optional JSON files.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func loadCatalog(ctx context.Context, cfg *config.RecommendConfig, logger zerolog.Logger) (*catalogSources, error) {
	if cfg.CatalogDir != "" {
		store, err := catalog.Open(cfg.CatalogDir, cfg.UserDefaults, logger)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		tables, err := store.LoadTables(ctx)
		if err != nil {
			closeStore(store, logger)
			return nil, fmt.Errorf("load tables from catalog: %w", err)
		}
		if cfg.TablesPath != "" || cfg.UsersPath != "" {
			logger.Warn().Str("catalog_dir", cfg.CatalogDir).Msg("catalog directory set; tables and users files are ignored")
		}
		return &catalogSources{tables: tables, users: store, store: store}, nil
	}

	src := &catalogSources{}
	if cfg.TablesPath != "" {
		tables, err := catalog.LoadTablesFile(cfg.TablesPath)
		if err != nil {
			return nil, fmt.Errorf("load tables: %w", err)
		}
		src.tables = tables
	} else {
		logger.Warn().Msg("no popularity tables configured; fallback and insurance are disabled")
	}

	var profiles []catalog.UserProfile
	if cfg.UsersPath != "" {
		var err error
		if profiles, err = catalog.LoadUsersFile(cfg.UsersPath); err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
	}
	src.users = catalog.NewStaticUserLoader(profiles, cfg.UserDefaults)
	logger.Info().Int("users", len(profiles)).Msg("file-backed catalog loaded")
	return src, nil
}

//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func closeStore(store *catalog.Store, logger zerolog.Logger) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("close catalog")
	}
}
