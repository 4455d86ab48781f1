// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed by the API server at /metrics.

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: Requests in flight (gauge)
  - api_rate_limit_hits_total: Rate-limited requests (counter)

Recommendation Metrics:
  - recommend_requests_total, recommend_duration_seconds
    Labels: outcome ("ok", "degraded", "error")
  - recommend_rule_candidates: rule recall pool size (histogram)
  - recommend_fallback_total: fallback usage by tier (counter)
  - recommend_insurance_fills_total, recommend_insurance_items_total
  - recommend_cache_hits_total, recommend_cache_misses_total,
    recommend_cache_expired_total

Dispatcher Metrics:
  - dispatch_requests_total: Labels: result ("ok", "timeout", "saturated",
    "circuit_open", "error")
  - dispatch_in_flight: worker slots in use (gauge)
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_state_transitions_total

Rule Index Metrics:
  - rule_index_size: Labels: kind ("contexts", "antecedents", "rules")
  - rule_index_contexts_per_level: Labels: level
  - rule_index_loaded_timestamp_seconds

# Usage

	start := time.Now()
	resp, err := recommender.Recommend(ctx, req)
	metrics.RecordRecommendation("ok", time.Since(start), resp.Metadata.RuleCandidates)

Helpers are safe for concurrent use.
*/
package metrics
