// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package evaluation scores a recommender offline against held-out purchases.
//
// The ranking metrics (Precision@K, Recall@K, HitRate@K) are computed per user
// and averaged by Evaluate. The coverage metrics describe the whole run.
package evaluation

// Per-user source labels used by RuleHitRate and SourceDistribution.
const (
	LabelRules         = "rules"
	LabelRulesFallback = "rules+fallback"
	LabelFallback      = "fallback"
)

func toSet(items []int) map[int]bool {
	s := make(map[int]bool, len(items))
	for _, id := range items {
		s[id] = true
	}
	return s
}

// hits counts distinct items in the first k of recommended that are relevant.
func hits(recommended []int, relevant map[int]bool, k int) int {
	if k > len(recommended) {
		k = len(recommended)
	}
	seen := make(map[int]bool, k)
	n := 0
	for _, id := range recommended[:k] {
		if relevant[id] && !seen[id] {
			n++
		}
		seen[id] = true
	}
	return n
}

// PrecisionAtK is the number of relevant items in the top k divided by k.
// A non-positive k scores 0.
func PrecisionAtK(recommended, relevant []int, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(hits(recommended, toSet(relevant), k)) / float64(k)
}

// RecallAtK is the number of relevant items in the top k divided by the number
// of distinct relevant items. An empty relevant set scores 0.
func RecallAtK(recommended, relevant []int, k int) float64 {
	rel := toSet(relevant)
	if len(rel) == 0 || k <= 0 {
		return 0
	}
	return float64(hits(recommended, rel, k)) / float64(len(rel))
}

// HitRateAtK is 1 when any relevant item appears in the top k.
func HitRateAtK(recommended, relevant []int, k int) float64 {
	if k <= 0 {
		return 0
	}
	if hits(recommended, toSet(relevant), k) > 0 {
		return 1
	}
	return 0
}

// UserCoverage is the fraction of users with at least one recommendation.
func UserCoverage(recs map[int][]int) float64 {
	if len(recs) == 0 {
		return 0
	}
	covered := 0
	for _, r := range recs {
		if len(r) > 0 {
			covered++
		}
	}
	return float64(covered) / float64(len(recs))
}

// ItemCoverage is the fraction of catalog items recommended to anyone. An
// empty catalog scores 0.
func ItemCoverage(recs map[int][]int, catalog []int) float64 {
	all := toSet(catalog)
	if len(all) == 0 {
		return 0
	}
	seen := make(map[int]bool)
	for _, r := range recs {
		for _, id := range r {
			if all[id] {
				seen[id] = true
			}
		}
	}
	return float64(len(seen)) / float64(len(all))
}

// RuleHitRate is the fraction of users whose label is LabelRules or
// LabelRulesFallback.
func RuleHitRate(labels map[int]string) float64 {
	if len(labels) == 0 {
		return 0
	}
	n := 0
	for _, l := range labels {
		if l == LabelRules || l == LabelRulesFallback {
			n++
		}
	}
	return float64(n) / float64(len(labels))
}

// SourceDistribution returns the share of users per label.
func SourceDistribution(labels map[int]string) map[string]float64 {
	out := make(map[string]float64)
	if len(labels) == 0 {
		return out
	}
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	for l, c := range counts {
		out[l] = float64(c) / float64(len(labels))
	}
	return out
}
