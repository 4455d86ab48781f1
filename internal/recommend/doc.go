// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package recommend implements the hybrid basket recommendation pipeline.
//
// # Architecture
//
// A request flows through a fixed sequence of stages, never backtracking:
//
//   - User context: cluster ids and lifecycle stage from a
//     catalog.UserContextLoader, time bucket and weekend flag from the caller
//   - Rule recall: candidate.Generator walks the context hierarchy and
//     accumulates decayed rule scores for basket subsets
//   - Tiered fallback: when recall is short, popular-by-time-bucket,
//     popular-by-lifecycle, popular-by-behavior, popular-by-frequency,
//     basket-department similarity and finally the global list are tried in
//     order; the first tier that contributes new items wins
//   - Adjustment: behavior, preference and lifecycle adjusters
//   - Ranking: ranking.Ranker fuses the four signals and reserves leading
//     slots for rule-backed items
//   - Insurance fill: a short list is topped up from the global popular list
//
// Every returned item carries its provenance: the hierarchy levels that
// produced it (L1..L5) and the named source tags (RULE, POPULAR_*,
// SIMILAR_DEPT, INSURANCE).
//
// # Design Principles
//
//   - Deterministic: identical requests against the same index produce
//     identical output; all ties break by item id
//   - Immutable state: the rule index and catalog tables are loaded once and
//     shared by all requests without locks
//   - Never fails for lack of signal: missing clusters, departments or
//     weights resolve to neutral values; only context cancellation is an error
//
// # Usage
//
//	rec, err := recommend.New(recommend.Deps{
//	    Generator: gen,
//	    Ranker:    ranker,
//	    Tables:    tables,
//	    Users:     store,
//	}, recommend.DefaultConfig(), logger)
//
//	resp, err := rec.Recommend(ctx, recommend.Request{
//	    UserID: 42,
//	    Basket: []int{101, 202},
//	    TopK:   10,
//	})
//
// A Dispatcher wraps a Recommender for servers: it bounds concurrency, applies
// a deadline and a circuit breaker, and degrades to PopularOnly instead of
// retrying.
package recommend
