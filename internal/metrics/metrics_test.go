// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{"recommend ok", "POST", "/api/v1/recommendations", "200", 3 * time.Millisecond},
		{"bad request", "POST", "/api/v1/recommendations", "400", time.Millisecond},
		{"stats", "GET", "/api/v1/rules/stats", "200", 500 * time.Microsecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
			after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			if after-before != 1 {
				t.Errorf("api_requests_total delta = %v, want 1", after-before)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendRequests.WithLabelValues("degraded"))
	RecordRecommendation("degraded", 2*time.Millisecond, 0)
	if got := testutil.ToFloat64(RecommendRequests.WithLabelValues("degraded")) - before; got != 1 {
		t.Errorf("recommend_requests_total{degraded} delta = %v, want 1", got)
	}
}

func TestRecordFallbackAndInsurance(t *testing.T) {
	tier := "POPULAR_TIME_BUCKET"
	before := testutil.ToFloat64(RecommendFallbackTotal.WithLabelValues(tier))
	RecordFallback(tier)
	if got := testutil.ToFloat64(RecommendFallbackTotal.WithLabelValues(tier)) - before; got != 1 {
		t.Errorf("fallback delta = %v, want 1", got)
	}

	fills := testutil.ToFloat64(RecommendInsuranceFills)
	items := testutil.ToFloat64(RecommendInsuranceItems)
	RecordInsuranceFill(3)
	if testutil.ToFloat64(RecommendInsuranceFills)-fills != 1 {
		t.Error("insurance fills not incremented")
	}
	if testutil.ToFloat64(RecommendInsuranceItems)-items != 3 {
		t.Error("insurance items not incremented by 3")
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(RecommendCacheHits)
	misses := testutil.ToFloat64(RecommendCacheMisses)
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)
	if testutil.ToFloat64(RecommendCacheHits)-hits != 1 {
		t.Error("cache hits delta != 1")
	}
	if testutil.ToFloat64(RecommendCacheMisses)-misses != 2 {
		t.Error("cache misses delta != 2")
	}
}

func TestDispatchMetrics(t *testing.T) {
	before := testutil.ToFloat64(DispatchTotal.WithLabelValues("timeout"))
	RecordDispatch("timeout")
	if testutil.ToFloat64(DispatchTotal.WithLabelValues("timeout"))-before != 1 {
		t.Error("dispatch timeout not recorded")
	}

	inflight := testutil.ToFloat64(DispatchInFlight)
	TrackDispatchSlot(true)
	if testutil.ToFloat64(DispatchInFlight)-inflight != 1 {
		t.Error("slot acquire not tracked")
	}
	TrackDispatchSlot(false)
	if testutil.ToFloat64(DispatchInFlight) != inflight {
		t.Error("slot release not tracked")
	}
}

func TestSetRuleIndexSize(t *testing.T) {
	SetRuleIndexSize(4, 10, 25, map[string]int{"L1": 1, "L5": 1})

	tests := []struct {
		kind string
		want float64
	}{
		{"contexts", 4},
		{"antecedents", 10},
		{"rules", 25},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(RuleIndexSize.WithLabelValues(tt.kind)); got != tt.want {
			t.Errorf("rule_index_size{%s} = %v, want %v", tt.kind, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(RuleIndexContextsPerLevel.WithLabelValues("L5")); got != 1 {
		t.Errorf("contexts_per_level{L5} = %v, want 1", got)
	}
	if testutil.ToFloat64(RuleIndexLoadedAt) == 0 {
		t.Error("loaded timestamp not set")
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordRecommendation("ok", time.Millisecond, j%20)
				RecordCacheLookup(j%2 == 0)
				RecordDispatch("ok")
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		APIRequestsTotal, APIRequestDuration, APIActiveRequests, APIRateLimitHits,
		RecommendRequests, RecommendDuration, RecommendRuleCandidates,
		RecommendFallbackTotal, RecommendInsuranceFills, RecommendInsuranceItems,
		RecommendCacheHits, RecommendCacheMisses, RecommendCacheEvictions,
		DispatchTotal, DispatchInFlight,
		CircuitBreakerState, CircuitBreakerRequests, CircuitBreakerConsecutiveFailures, CircuitBreakerTransitions,
		RuleIndexSize, RuleIndexContextsPerLevel, RuleIndexLoadedAt, AppInfo,
	}
	for i, c := range collectors {
		if c == nil {
			t.Errorf("collector %d is nil", i)
		}
	}
}
