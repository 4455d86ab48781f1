// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

/*
Package config provides centralized configuration management for Basketrec.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file, then environment variables. Only the environment variables listed
in envMappings are read.

# Configuration Sources

  - Defaults built from the component packages (candidate, ranking, recommend)
  - config.yaml, config.yml or /etc/basketrec/config.yaml
  - CONFIG_PATH to point at a specific file
  - Environment variables (highest priority)

# Environment Variables

Server:
  - HTTP_PORT: Listen port (default: 8090)
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_TIMEOUT: Per-request timeout (default: 30s)
  - HTTP_SHUTDOWN_TIMEOUT: Graceful shutdown timeout (default: 10s)
  - ENVIRONMENT: development, staging or production

Security:
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - RATE_LIMIT_REQUESTS: Requests per window per client (default: 600)
  - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
  - DISABLE_RATE_LIMIT: Disable rate limiting (default: false)

Recommendation engine:
  - RULE_INDEX_PATH: Rule index artifact, .json or .json.gz (required)
  - RECOMMEND_CATALOG_DIR: Badger catalog directory
  - RECOMMEND_TABLES_PATH, RECOMMEND_USERS_PATH: JSON catalog files
  - RECOMMEND_MATCH_THRESHOLD: Context match threshold (default: 0.6)
  - RECOMMEND_DECAY_L1 .. RECOMMEND_DECAY_L5: Level decay overrides
  - RECOMMEND_DEFAULT_K, RECOMMEND_MAX_K: top_k limits

Cache, dispatcher and tracing settings use the CACHE_, DISPATCH_ and
TRACING_ prefixes.

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	rec, err := recommend.New(deps, cfg.RecommenderOptions(), logger)
*/
package config
