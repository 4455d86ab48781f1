// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package storage persists a cleaned rules.ContextRuleIndex as a single
// versioned artifact and loads it back at process start.
//
// # Artifact Format
//
// The artifact is a JSON document, optionally gzip-compressed:
//
//	{
//	  "_meta": {
//	    "schema_version": 2,
//	    "algorithm": "fpgrowth",
//	    "algorithm_version": 2,
//	    "created_at": "2026-01-02T03:04:05Z",
//	    "stats": {"contexts": 12, "antecedents": 4000, "rules": 31000},
//	    "checksum": "<sha256 of the compact data document>"
//	  },
//	  "data": {"<context key>": {"<antecedent key>": [<rule>, ...]}}
//	}
//
// Paths ending in ".gz" are written compressed. Load detects compression from
// the gzip magic bytes, so a renamed artifact still loads.
//
// # Integrity
//
// Writes go to a temporary file in the target directory and are renamed into
// place. Load verifies the checksum when present and validates every rule
// record, so the engine never sees a partially valid index.
//
// # Usage Example
//
//	store := storage.NewStore(logger)
//
//	meta, err := store.Save(ctx, index, "/data/rules.json.gz")
//	if err != nil {
//	    return err
//	}
//
//	index, meta, err := store.Load(ctx, "/data/rules.json.gz")
//	if rules.IsConfigurationError(err) {
//	    // fatal at startup
//	}
package storage
