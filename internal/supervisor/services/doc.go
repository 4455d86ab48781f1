// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

/*
Package services provides suture.Service implementations for Basketrec.

  - HTTPServerService: runs the API server and drains it on shutdown
  - CacheJanitorService: purges expired recommendation responses
  - CatalogGCService: runs badger value log GC on the catalog store

Every service returns ctx.Err() when the supervisor cancels it, so suture
treats the stop as clean and does not restart it.
*/
package services
