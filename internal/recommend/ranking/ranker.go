// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package ranking fuses the recall and personalization score sources into
// the final ordered list.
//
// Each source is min-max normalized independently, then combined with
// normalized weights. The leading positions are reserved for rule-backed
// items so that personalization signals cannot push association rules out
// of the visible list.
package ranking

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Weights controls the contribution of each score source.
type Weights struct {
	Rule       float64 `json:"rule" koanf:"rule"`
	Behavior   float64 `json:"behavior" koanf:"behavior"`
	Preference float64 `json:"preference" koanf:"preference"`
	Lifecycle  float64 `json:"lifecycle" koanf:"lifecycle"`
}

// DefaultWeights returns the production fusion weights.
func DefaultWeights() Weights {
	return Weights{
		Rule:       0.5,
		Behavior:   0.2,
		Preference: 0.2,
		Lifecycle:  0.1,
	}
}

// Validate checks that weights are non-negative with a positive sum.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w Weights) Validate() error {
	if w.Rule < 0 || w.Behavior < 0 || w.Preference < 0 || w.Lifecycle < 0 {
		return fmt.Errorf("ranking weights must be non-negative, got %+v", w)
	}
	if w.Rule+w.Behavior+w.Preference+w.Lifecycle <= 0 {
		return fmt.Errorf("sum of ranking weights must be positive")
	}
	return nil
}

// Normalize returns weights scaled to sum to 1.0.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w Weights) Normalize() Weights {
	sum := w.Rule + w.Behavior + w.Preference + w.Lifecycle
	if sum == 0 {
		return DefaultWeights().Normalize()
	}
	return Weights{
		Rule:       w.Rule / sum,
		Behavior:   w.Behavior / sum,
		Preference: w.Preference / sum,
		Lifecycle:  w.Lifecycle / sum,
	}
}

// Config holds ranker settings.
type Config struct {
	Weights Weights `json:"weights"`

	// MinRuleSlots is the number of leading positions reserved for
	// rule-backed items.
	// Default: 3
	MinRuleSlots int `json:"min_rule_slots"`
}

// DefaultConfig returns the production ranker settings.
func DefaultConfig() Config {
	return Config{
		Weights:      DefaultWeights(),
		MinRuleSlots: 3,
	}
}

// Sources holds the four score maps. Items may appear in any subset of them.
type Sources struct {
	Rule       map[int]float64
	Behavior   map[int]float64
	Preference map[int]float64
	Lifecycle  map[int]float64

	// RuleBacked, when non-nil, names the items eligible for the reserved
	// leading slots. When nil, any item with a nonzero rule score is eligible.
	RuleBacked map[int]bool
}

// Components are an item's normalized per-source scores, before weighting.
type Components struct {
	Rule       float64 `json:"rule"`
	Behavior   float64 `json:"behavior"`
	Preference float64 `json:"preference"`
	Lifecycle  float64 `json:"lifecycle"`
}

// Ranked is one ranked item.
type Ranked struct {
	ItemID     int        `json:"item_id"`
	Score      float64    `json:"score"`
	Components Components `json:"components"`
}

// Ranker fuses score sources. It is stateless after construction and safe for
// concurrent use.
type Ranker struct {
	weights      Weights
	minRuleSlots int
	logger       zerolog.Logger
}

// New validates cfg and creates a Ranker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, logger zerolog.Logger) (*Ranker, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.MinRuleSlots < 0 {
		return nil, fmt.Errorf("min_rule_slots must be non-negative, got %d", cfg.MinRuleSlots)
	}

	r := &Ranker{
		weights:      cfg.Weights.Normalize(),
		minRuleSlots: cfg.MinRuleSlots,
		logger:       logger.With().Str("component", "ranker").Logger(),
	}
	r.logger.Info().
		Float64("rule", r.weights.Rule).
		Float64("behavior", r.weights.Behavior).
		Float64("preference", r.weights.Preference).
		Float64("lifecycle", r.weights.Lifecycle).
		Int("min_rule_slots", r.minRuleSlots).
		Msg("ranker initialized")
	return r, nil
}

// Weights returns the normalized fusion weights.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// Rank returns at most topK items. The output has exactly topK items whenever
// that many distinct items exist across the sources.
func (r *Ranker) Rank(src Sources, topK int) []Ranked {
	if topK <= 0 {
		return []Ranked{}
	}

	ruleN := MinMaxNormalize(src.Rule)
	behaviorN := MinMaxNormalize(src.Behavior)
	preferenceN := MinMaxNormalize(src.Preference)
	lifecycleN := MinMaxNormalize(src.Lifecycle)

	seen := make(map[int]bool)
	for _, m := range []map[int]float64{src.Rule, src.Behavior, src.Preference, src.Lifecycle} {
		for id := range m {
			seen[id] = true
		}
	}
	if len(seen) == 0 {
		r.logger.Warn().Int("top_k", topK).Msg("ranker received empty candidate set")
		return []Ranked{}
	}

	all := make([]Ranked, 0, len(seen))
	for id := range seen {
		c := Components{
			Rule:       ruleN[id],
			Behavior:   behaviorN[id],
			Preference: preferenceN[id],
			Lifecycle:  lifecycleN[id],
		}
		all = append(all, Ranked{
			ItemID: id,
			Score: r.weights.Rule*c.Rule +
				r.weights.Behavior*c.Behavior +
				r.weights.Preference*c.Preference +
				r.weights.Lifecycle*c.Lifecycle,
			Components: c,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].ItemID < all[j].ItemID
	})

	eligible := func(id int) bool {
		if src.RuleBacked != nil {
			return src.RuleBacked[id]
		}
		return src.Rule[id] != 0
	}

	slots := r.minRuleSlots
	if slots > topK {
		slots = topK
	}

	out := make([]Ranked, 0, topK)
	used := make(map[int]bool, topK)
	for _, it := range all {
		if len(out) >= slots {
			break
		}
		if eligible(it.ItemID) {
			out = append(out, it)
			used[it.ItemID] = true
		}
	}
	for _, it := range all {
		if len(out) >= topK {
			break
		}
		if !used[it.ItemID] {
			out = append(out, it)
			used[it.ItemID] = true
		}
	}

	if len(out) < topK {
		r.logger.Warn().Int("returned", len(out)).Int("top_k", topK).Msg("ranker returned fewer items than requested")
	}
	return out
}

// MinMaxNormalize scales scores to [0, 1]. A map whose values are all equal
// normalizes to 1.0 everywhere.
func MinMaxNormalize(scores map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	first := true
	var lo, hi float64
	for _, v := range scores {
		if first {
			lo, hi, first = v, v, false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if lo == hi {
		for id := range scores {
			out[id] = 1.0
		}
		return out
	}
	span := hi - lo
	for id, v := range scores {
		out[id] = (v - lo) / span
	}
	return out
}
