// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package recommend

import (
	"sort"

	"github.com/tomtom215/basketrec/internal/recommend/candidate"
)

// Base scores per fallback tier. Each tier scores its i-th item base - i*step
// so the table order survives ranking.
const (
	popularBase   = 1.0
	similarBase   = 0.8
	insuranceBase = 0.5
	tierStep      = 0.001
)

// fallbackTier is one rung of the fallback ladder. items is evaluated lazily.
type fallbackTier struct {
	source Source
	base   float64
	items  func() []int
}

// fallbackResult is the output of the first tier that contributed.
type fallbackResult struct {
	source Source
	items  []int
	scores map[int]float64
}

// ladder returns the fallback tiers in the order they are tried.
func (r *Recommender) ladder(uc *candidate.UserContext, basket []int) []fallbackTier {
	t := r.tables
	return []fallbackTier{
		{SourcePopularTimeBucket, popularBase, func() []int { return t.ByTimeBucket[uc.TimeBucket] }},
		{SourcePopularLifecycle, popularBase, func() []int { return t.ByLifecycle[uc.LifecycleStage] }},
		{SourcePopularBehavior, popularBase, func() []int { return t.ByBehavior[uc.BehaviorCluster] }},
		{SourcePopularGlobal, popularBase, func() []int { return t.Frequent }},
		{SourceSimilarDept, similarBase, func() []int { return r.similarItems(basket) }},
		{SourceInsurance, insuranceBase, func() []int { return t.Global }},
	}
}

// fallback walks the ladder and returns up to limit items from the first tier
// with at least one item outside exclude. ok is false when every tier is
// exhausted.
func (r *Recommender) fallback(uc *candidate.UserContext, basket []int, exclude map[int]bool, limit int) (fallbackResult, bool) {
	if limit <= 0 {
		return fallbackResult{}, false
	}
	for _, tier := range r.ladder(uc, basket) {
		picked := pickNew(tier.items(), exclude, limit)
		if len(picked) == 0 {
			continue
		}
		scores := make(map[int]float64, len(picked))
		for i, id := range picked {
			scores[id] = tier.base - float64(i)*tierStep
		}
		return fallbackResult{source: tier.source, items: picked, scores: scores}, true
	}
	return fallbackResult{}, false
}

// similarItems lists items sharing a department with any basket item, in
// ascending id order.
func (r *Recommender) similarItems(basket []int) []int {
	if len(r.byDepartment) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []int
	for _, id := range basket {
		dept, ok := r.tables.Department(id)
		if !ok || seen[dept] {
			continue
		}
		seen[dept] = true
		out = append(out, r.byDepartment[dept]...)
	}
	sort.Ints(out)
	return out
}

// pickNew returns up to limit items from list that are not in exclude,
// keeping list order and dropping repeats.
func pickNew(list []int, exclude map[int]bool, limit int) []int {
	var out []int
	taken := make(map[int]bool)
	for _, id := range list {
		if len(out) >= limit {
			break
		}
		if exclude[id] || taken[id] {
			continue
		}
		taken[id] = true
		out = append(out, id)
	}
	return out
}
