// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package recommend

import (
	"github.com/tomtom215/basketrec/internal/recommend/rules"
)

// Source names where a recommended item came from.
type Source string

const (
	// SourceRule marks items recalled from association rules.
	SourceRule Source = "RULE"

	// SourcePopularTimeBucket marks items from the time-bucket popularity table.
	SourcePopularTimeBucket Source = "POPULAR_TIME_BUCKET"

	// SourcePopularLifecycle marks items from the lifecycle-stage popularity table.
	SourcePopularLifecycle Source = "POPULAR_LIFECYCLE"

	// SourcePopularBehavior marks items from the behavior-cluster popularity table.
	SourcePopularBehavior Source = "POPULAR_BEHAVIOR"

	// SourcePopularGlobal marks items from the purchase-frequency table.
	SourcePopularGlobal Source = "POPULAR_GLOBAL"

	// SourceSimilarDept marks items sharing a department with the basket.
	SourceSimilarDept Source = "SIMILAR_DEPT"

	// SourceInsurance marks items from the global popular list used as the
	// last resort, either as a fallback tier or as insurance fill.
	SourceInsurance Source = "INSURANCE"
)

// IsFallback reports whether s is one of the fallback tiers.
func (s Source) IsFallback() bool {
	return s != SourceRule && s != ""
}

// Request is a recommendation request.
type Request struct {
	// UserID selects the user context.
	UserID int `json:"user_id" validate:"required,gt=0"`

	// Basket holds the items already in the cart. Order and duplicates do
	// not matter. No basket item is ever recommended.
	Basket []int `json:"basket" validate:"max=200,dive,gt=0"`

	// TimeBucket is night, morning, afternoon or evening. Empty means the
	// bucket of the current hour.
	TimeBucket string `json:"time_bucket,omitempty" validate:"omitempty,time_bucket"`

	// IsWeekend overrides the weekend flag. Nil means derived from today.
	IsWeekend *bool `json:"is_weekend,omitempty"`

	// TopK is the number of items wanted. Zero means Limits.DefaultK;
	// values above Limits.MaxK are clamped.
	TopK int `json:"top_k,omitempty" validate:"gte=0"`

	// ReturnMetadata adds per-item provenance and the request summary.
	ReturnMetadata bool `json:"return_metadata,omitempty"`

	// RequestID is echoed in logs and metadata. Generated when empty.
	RequestID string `json:"request_id,omitempty"`
}

// Item is one recommended item with its provenance.
type Item struct {
	ItemID int     `json:"item_id"`
	Score  float64 `json:"score"`

	// Sources lists the named source tags.
	Sources []Source `json:"sources"`

	// Levels lists the hierarchy levels whose rules produced the item, most
	// specific first. Empty for items not recalled from rules.
	Levels []string `json:"levels,omitempty"`
}

// HasSource reports whether the item carries tag s.
func (it *Item) HasSource(s Source) bool {
	for _, src := range it.Sources {
		if src == s {
			return true
		}
	}
	return false
}

// Response is a recommendation response.
type Response struct {
	// ItemIDs is the ranked list.
	ItemIDs []int `json:"item_ids"`

	// Items parallels ItemIDs with scores and provenance. Present only when
	// the request asked for metadata.
	Items []Item `json:"items,omitempty"`

	// Metadata summarizes how the list was built. Present only when the
	// request asked for metadata.
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Metadata summarizes one pipeline run.
type Metadata struct {
	RequestID  string `json:"request_id"`
	UserID     int    `json:"user_id"`
	TopK       int    `json:"top_k"`
	TimeBucket string `json:"time_bucket"`
	IsWeekend  bool   `json:"is_weekend"`

	// LifecycleStage, BehaviorCluster and PreferenceCluster are the resolved
	// user context, defaults included.
	LifecycleStage    string `json:"lifecycle_stage"`
	BehaviorCluster   int    `json:"behavior_cluster"`
	PreferenceCluster int    `json:"preference_cluster"`

	// RuleCandidates is the size of the rule recall pool.
	RuleCandidates int `json:"rule_candidates"`

	FallbackUsed  bool   `json:"fallback_used"`
	FallbackTier  Source `json:"fallback_tier,omitempty"`
	FallbackItems int    `json:"fallback_items"`

	InsuranceUsed  bool `json:"insurance_used"`
	InsuranceItems int  `json:"insurance_items"`

	// RuleItemCount counts returned items tagged RULE.
	RuleItemCount int `json:"rule_item_count"`
	FinalReturned int `json:"final_returned"`

	// MatchedContexts renders each contributing stored context.
	MatchedContexts []string `json:"matched_contexts"`

	// Degraded is set on popularity-only responses.
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degraded_reason,omitempty"`

	LatencyMS int64 `json:"latency_ms"`
	CacheHit  bool  `json:"cache_hit"`
}

// Stats describes the loaded state of a Recommender.
type Stats struct {
	Index            rules.IndexStats   `json:"index"`
	ContextsPerLevel map[string]int     `json:"contexts_per_level"`
	Levels           []string           `json:"levels"`
	Decays           map[string]float64 `json:"decays"`
	MatchThreshold   float64            `json:"match_threshold"`
	Global           int                `json:"global_popular"`
	Departments      int                `json:"departments"`
	CacheEnabled     bool               `json:"cache_enabled"`
	CacheHits        int64              `json:"cache_hits"`
	CacheMisses      int64              `json:"cache_misses"`
	CacheSize        int                `json:"cache_size"`
	Requests         int64              `json:"requests"`
	Degraded         int64              `json:"degraded"`
}
