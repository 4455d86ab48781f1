// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package adjust derives personalization score maps from precomputed
// cluster tables and the user's lifecycle stage.
//
// Adjusters never fail. A missing cluster, department or item resolves to a
// neutral value and is logged at debug level.
package adjust

import (
	"sort"

	"github.com/rs/zerolog"
)

// BehaviorWeights maps behavior cluster to item to multiplier.
type BehaviorWeights map[int]map[int]float64

// PreferenceWeights maps preference cluster to department to affinity.
type PreferenceWeights map[int]map[string]float64

// DepartmentOf resolves an item's department.
type DepartmentOf func(item int) (string, bool)

// BehaviorAdjuster scales scores by the user's behavior cluster.
type BehaviorAdjuster struct {
	weights BehaviorWeights
	logger  zerolog.Logger
}

// NewBehaviorAdjuster creates a BehaviorAdjuster over weights.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBehaviorAdjuster(weights BehaviorWeights, logger zerolog.Logger) *BehaviorAdjuster {
	return &BehaviorAdjuster{
		weights: weights,
		logger:  logger.With().Str("component", "behavior_adjuster").Logger(),
	}
}

// Apply returns a new map with each score multiplied by the cluster's item
// weight, 1.0 for unknown items. An unknown cluster returns an unchanged copy.
func (a *BehaviorAdjuster) Apply(scores map[int]float64, cluster int) map[int]float64 {
	out := make(map[int]float64, len(scores))
	weights, ok := a.weights[cluster]
	if !ok {
		a.logger.Debug().Int("cluster", cluster).Msg("behavior cluster not found")
		for id, s := range scores {
			out[id] = s
		}
		return out
	}

	affected := 0
	for id, s := range scores {
		w, ok := weights[id]
		if !ok {
			w = 1.0
		} else {
			affected++
		}
		out[id] = s * w
	}
	a.logger.Debug().Int("cluster", cluster).Int("affected", affected).Msg("behavior adjust")
	return out
}

// PreferenceFilter assigns department affinity scores by preference cluster.
type PreferenceFilter struct {
	weights PreferenceWeights
	logger  zerolog.Logger
}

// NewPreferenceFilter creates a PreferenceFilter over weights.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPreferenceFilter(weights PreferenceWeights, logger zerolog.Logger) *PreferenceFilter {
	return &PreferenceFilter{
		weights: weights,
		logger:  logger.With().Str("component", "preference_filter").Logger(),
	}
}

// Apply scores every item with its department's affinity in cluster. Items
// without a department, unknown departments and unknown clusters score 0.
func (f *PreferenceFilter) Apply(items []int, cluster int, deptOf DepartmentOf) map[int]float64 {
	out := make(map[int]float64, len(items))
	weights, ok := f.weights[cluster]
	if !ok {
		f.logger.Debug().Int("cluster", cluster).Msg("preference cluster not found")
		for _, id := range items {
			out[id] = 0
		}
		return out
	}

	missing := 0
	for _, id := range items {
		var dept string
		found := false
		if deptOf != nil {
			dept, found = deptOf(id)
		}
		if !found {
			missing++
			out[id] = 0
			continue
		}
		out[id] = weights[dept]
	}
	if missing > 0 {
		f.logger.Debug().Int("cluster", cluster).Int("missing_department", missing).Msg("preference lookup miss")
	}
	return out
}

// Lifecycle stages with a dedicated policy.
const (
	StageNew     = "new"
	StageRegular = "regular"
	StageLoyal   = "loyal"
	StageUnknown = "unknown"
)

// Policy boosts the head and tail of a score distribution.
type Policy struct {
	HeadBoost float64 `json:"head_boost" koanf:"head_boost"`
	TailBoost float64 `json:"tail_boost" koanf:"tail_boost"`
}

// DefaultPolicies returns the stage policies: new users are pushed toward
// the head, loyal users toward the tail.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		StageNew:     {HeadBoost: 1.15, TailBoost: 1.00},
		StageRegular: {HeadBoost: 1.00, TailBoost: 1.00},
		StageLoyal:   {HeadBoost: 0.95, TailBoost: 1.10},
	}
}

// HeadFraction is the share of ranked items treated as the head.
const HeadFraction = 0.3

// LifecycleAdjuster reweights a score map by lifecycle stage.
type LifecycleAdjuster struct {
	policies map[string]Policy
	fallback Policy
	logger   zerolog.Logger
}

// NewLifecycleAdjuster creates a LifecycleAdjuster. Stages missing from
// policies use the regular policy, or a neutral one if that is missing too.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLifecycleAdjuster(policies map[string]Policy, logger zerolog.Logger) *LifecycleAdjuster {
	if policies == nil {
		policies = DefaultPolicies()
	}
	fallback, ok := policies[StageRegular]
	if !ok {
		fallback = Policy{HeadBoost: 1, TailBoost: 1}
	}
	return &LifecycleAdjuster{
		policies: policies,
		fallback: fallback,
		logger:   logger.With().Str("component", "lifecycle_adjuster").Logger(),
	}
}

// Adjust multiplies the top max(1, int(0.3n)) items by the stage's head boost
// and the rest by its tail boost. Ties rank by item id ascending.
func (a *LifecycleAdjuster) Adjust(scores map[int]float64, stage string) map[int]float64 {
	out := make(map[int]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	policy, ok := a.policies[stage]
	if !ok {
		a.logger.Debug().Str("stage", stage).Msg("lifecycle stage has no policy, using regular")
		policy = a.fallback
	}

	ranked := make([]int, 0, len(scores))
	for id := range scores {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return ranked[i] < ranked[j]
	})

	head := int(HeadFraction * float64(len(ranked)))
	if head < 1 {
		head = 1
	}
	for i, id := range ranked {
		if i < head {
			out[id] = scores[id] * policy.HeadBoost
		} else {
			out[id] = scores[id] * policy.TailBoost
		}
	}

	a.logger.Debug().Str("stage", stage).Int("head", head).Int("total", len(ranked)).Msg("lifecycle adjust")
	return out
}
