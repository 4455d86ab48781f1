// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

/*
Package main is the entry point for the Basketrec recommendation server.

Startup order:

 1. Configuration: Koanf v2 (defaults, optional config.yaml, environment)
 2. Logging and tracing
 3. Rule index: loaded from RULE_INDEX_PATH; any load error is fatal
 4. Catalog: badger directory (RECOMMEND_CATALOG_DIR) or JSON files
    (RECOMMEND_TABLES_PATH, RECOMMEND_USERS_PATH)
 5. Recommender and dispatcher
 6. Supervisor tree with the HTTP server, cache janitor and catalog GC

# Supervision

	RootSupervisor ("basketrec")
	├── DataSupervisor ("data-layer")
	│   └── catalog-gc (badger catalog only)
	├── EngineSupervisor ("engine-layer")
	│   └── cache-janitor (CACHE_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── http-server

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for HTTP_SHUTDOWN_TIMEOUT, then the catalog is closed and traces
are flushed.

# Example

	export RULE_INDEX_PATH=/data/rules.json.gz
	export RECOMMEND_CATALOG_DIR=/data/catalog
	export CORS_ORIGINS=https://shop.example.com
	./basketrec
*/
package main
