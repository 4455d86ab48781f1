// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate-limited API requests",
		},
		[]string{"endpoint"},
	)

	// Recommendation Pipeline Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "degraded", "error"
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Recommendation pipeline latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"outcome"},
	)

	RecommendRuleCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_rule_candidates",
			Help:    "Number of candidates produced by rule recall per request",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200},
		},
	)

	RecommendFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_fallback_total",
			Help: "Requests that used fallback recall, by winning tier",
		},
		[]string{"tier"},
	)

	RecommendInsuranceFills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_insurance_fills_total",
			Help: "Requests whose ranked output was topped up from the global popular list",
		},
	)

	RecommendInsuranceItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_insurance_items_total",
			Help: "Items appended by insurance fill",
		},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Recommendation responses served from cache",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Recommendation cache misses",
		},
	)

	RecommendCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_expired_total",
			Help: "Expired cache entries removed by the janitor",
		},
	)

	// Dispatcher Metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Dispatched recommendation calls by result",
		},
		[]string{"result"}, // "ok", "timeout", "saturated", "circuit_open", "error"
	)

	DispatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_in_flight",
			Help: "Pipeline executions currently holding a worker slot",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Rule Index Metrics
	RuleIndexSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rule_index_size",
			Help: "Size of the loaded rule index",
		},
		[]string{"kind"}, // "contexts", "antecedents", "rules"
	)

	RuleIndexContextsPerLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rule_index_contexts_per_level",
			Help: "Stored contexts per hierarchy level",
		},
		[]string{"level"},
	)

	RuleIndexLoadedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rule_index_loaded_timestamp_seconds",
			Help: "Unix time the rule index was loaded",
		},
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basketrec_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records one completed pipeline run.
func RecordRecommendation(outcome string, duration time.Duration, ruleCandidates int) {
	RecommendRequests.WithLabelValues(outcome).Inc()
	RecommendDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome != "error" {
		RecommendRuleCandidates.Observe(float64(ruleCandidates))
	}
}

// RecordFallback records the fallback tier that supplied items.
func RecordFallback(tier string) {
	RecommendFallbackTotal.WithLabelValues(tier).Inc()
}

// RecordInsuranceFill records an insurance top-up of n items.
func RecordInsuranceFill(n int) {
	RecommendInsuranceFills.Inc()
	RecommendInsuranceItems.Add(float64(n))
}

// RecordCacheLookup records a response cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		RecommendCacheHits.Inc()
	} else {
		RecommendCacheMisses.Inc()
	}
}

// RecordCacheExpired records entries purged by the janitor.
func RecordCacheExpired(n int) {
	RecommendCacheEvictions.Add(float64(n))
}

// RecordDispatch records how a dispatched call resolved.
func RecordDispatch(result string) {
	DispatchTotal.WithLabelValues(result).Inc()
}

// TrackDispatchSlot tracks worker slots in use.
func TrackDispatchSlot(acquired bool) {
	if acquired {
		DispatchInFlight.Inc()
	} else {
		DispatchInFlight.Dec()
	}
}

// SetRuleIndexSize publishes the loaded index dimensions.
func SetRuleIndexSize(contexts, antecedents, rules int, perLevel map[string]int) {
	RuleIndexSize.WithLabelValues("contexts").Set(float64(contexts))
	RuleIndexSize.WithLabelValues("antecedents").Set(float64(antecedents))
	RuleIndexSize.WithLabelValues("rules").Set(float64(rules))
	for level, n := range perLevel {
		RuleIndexContextsPerLevel.WithLabelValues(level).Set(float64(n))
	}
	RuleIndexLoadedAt.SetToCurrentTime()
}
