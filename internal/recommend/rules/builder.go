// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// BuilderConfig controls rule cleaning and scoring.
type BuilderConfig struct {
	// MinLift drops rules whose lift is below this value.
	// Default: 1.05
	MinLift float64 `json:"min_lift"`

	// MaxRulesPerAntecedent caps each antecedent's rule list.
	// Default: 10
	MaxRulesPerAntecedent int `json:"max_rules_per_antecedent"`

	// ConfidenceWeight and LiftWeight weight the score components. The support
	// weight is derived as max(0, 1 - ConfidenceWeight - LiftWeight).
	// Defaults: 0.7 and 0.3
	ConfidenceWeight float64 `json:"confidence_weight"`
	LiftWeight       float64 `json:"lift_weight"`

	// LiftCap bounds lift inside the score formula.
	// Default: 10
	LiftCap float64 `json:"lift_cap"`
}

// DefaultBuilderConfig returns the production scoring policy.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MinLift:               1.05,
		MaxRulesPerAntecedent: 10,
		ConfidenceWeight:      0.7,
		LiftWeight:            0.3,
		LiftCap:               10,
	}
}

// Validate checks the configuration.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (c BuilderConfig) Validate() error {
	if c.ConfidenceWeight < 0 {
		return fmt.Errorf("confidence_weight must be non-negative, got %f", c.ConfidenceWeight)
	}
	if c.LiftWeight < 0 {
		return fmt.Errorf("lift_weight must be non-negative, got %f", c.LiftWeight)
	}
	if c.ConfidenceWeight+c.LiftWeight == 0 {
		return fmt.Errorf("confidence_weight and lift_weight cannot both be zero")
	}
	if c.MaxRulesPerAntecedent < 1 {
		return fmt.Errorf("max_rules_per_antecedent must be positive, got %d", c.MaxRulesPerAntecedent)
	}
	if c.MinLift < 0 {
		return fmt.Errorf("min_lift must be non-negative, got %f", c.MinLift)
	}
	if c.LiftCap <= 0 {
		return fmt.Errorf("lift_cap must be positive, got %f", c.LiftCap)
	}
	return nil
}

// SupportWeight returns the derived support weight, clamped at zero.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (c BuilderConfig) SupportWeight() float64 {
	return math.Max(0, 1-c.ConfidenceWeight-c.LiftWeight)
}

// BuildStats counts what happened to the raw rules during a build.
type BuildStats struct {
	RulesIn        int `json:"rules_in"`
	Invalid        int `json:"invalid"`
	LowLift        int `json:"low_lift"`
	Duplicates     int `json:"duplicates"`
	Truncated      int `json:"truncated"`
	Kept           int `json:"kept"`
	AntecedentsIn  int `json:"antecedents_in"`
	AntecedentsOut int `json:"antecedents_out"`
	BadAntecedents int `json:"bad_antecedents"`
}

func (s *BuildStats) add(o BuildStats) {
	s.RulesIn += o.RulesIn
	s.Invalid += o.Invalid
	s.LowLift += o.LowLift
	s.Duplicates += o.Duplicates
	s.Truncated += o.Truncated
	s.Kept += o.Kept
	s.AntecedentsIn += o.AntecedentsIn
	s.AntecedentsOut += o.AntecedentsOut
	s.BadAntecedents += o.BadAntecedents
}

// Builder cleans, deduplicates, rescores and truncates raw mined rules.
// It performs no I/O and is safe for concurrent use.
type Builder struct {
	cfg    BuilderConfig
	logger zerolog.Logger
}

// NewBuilder validates cfg and returns a Builder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBuilder(cfg BuilderConfig, logger zerolog.Logger) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid builder config: %w", err)
	}
	b := &Builder{
		cfg:    cfg,
		logger: logger.With().Str("component", "rule_builder").Logger(),
	}
	if cfg.SupportWeight() == 0 {
		b.logger.Warn().
			Float64("confidence_weight", cfg.ConfidenceWeight).
			Float64("lift_weight", cfg.LiftWeight).
			Msg("support weight clamped to zero")
	}
	return b, nil
}

// Config returns the builder configuration.
func (b *Builder) Config() BuilderConfig {
	return b.cfg
}

// Score computes the unified rule score, rounded to four decimals.
func (b *Builder) Score(confidence, lift, support float64) float64 {
	return round(
		b.cfg.ConfidenceWeight*confidence+
			b.cfg.LiftWeight*math.Min(lift, b.cfg.LiftCap)+
			b.cfg.SupportWeight()*support,
		4,
	)
}

// Build turns one context's raw rules into a RuleIndex.
func (b *Builder) Build(raw RawIndex) (RuleIndex, BuildStats) {
	var stats BuildStats
	stats.AntecedentsIn = len(raw)

	// Canonicalize keys first so colliding spellings ("2|1", "1|2") merge.
	type group struct {
		antecedent []int
		raw        []RawRule
	}
	groups := make(map[string]*group, len(raw))
	for _, key := range sortedKeys(raw) {
		list := raw[key]
		ant, err := ParseAntecedentKey(key)
		if err != nil {
			stats.BadAntecedents++
			stats.RulesIn += len(list)
			stats.Invalid += len(list)
			b.logger.Debug().Err(err).Msg("dropping unparseable antecedent")
			continue
		}
		canon := joinSorted(ant)
		g, ok := groups[canon]
		if !ok {
			g = &group{antecedent: ant}
			groups[canon] = g
		}
		g.raw = append(g.raw, list...)
	}

	out := make(RuleIndex, len(groups))
	for key, g := range groups {
		list, s := b.buildAntecedent(g.antecedent, g.raw)
		stats.add(s)
		if len(list) > 0 {
			out[key] = list
		}
	}
	stats.AntecedentsOut = len(out)

	return out, stats
}

// BuildContexts applies Build to every context of a raw miner output.
// Contexts that end up empty are omitted.
func (b *Builder) BuildContexts(raw RawContextIndex) (ContextRuleIndex, BuildStats) {
	var total BuildStats
	out := make(ContextRuleIndex, len(raw))

	for _, ctxKey := range sortedKeys(raw) {
		idx, s := b.Build(raw[ctxKey])
		total.add(s)
		if len(idx) > 0 {
			out[ctxKey] = idx
		}
	}

	b.logger.Info().
		Int("contexts", len(out)).
		Int("rules_in", total.RulesIn).
		Int("invalid", total.Invalid).
		Int("low_lift", total.LowLift).
		Int("duplicates", total.Duplicates).
		Int("truncated", total.Truncated).
		Int("kept", total.Kept).
		Int("antecedents_in", total.AntecedentsIn).
		Int("antecedents_out", total.AntecedentsOut).
		Msg("rule build complete")

	return out, total
}

func (b *Builder) buildAntecedent(ant []int, raw []RawRule) ([]Rule, BuildStats) {
	var stats BuildStats
	stats.RulesIn = len(raw)

	best := make(map[int]Rule, len(raw))
	for _, r := range raw {
		if r.Consequent == nil || r.Confidence == nil || r.Lift == nil {
			stats.Invalid++
			continue
		}
		if *r.Lift < b.cfg.MinLift {
			stats.LowLift++
			continue
		}

		support := 0.0
		if r.Support != nil {
			support = *r.Support
		}
		rule := Rule{
			RuleID:     RuleID(ant, *r.Consequent),
			Antecedent: ant,
			Consequent: *r.Consequent,
			Confidence: round(*r.Confidence, 4),
			Lift:       round(math.Min(*r.Lift, b.cfg.LiftCap), 4),
			Support:    round(support, 6),
			Score:      b.Score(*r.Confidence, *r.Lift, support),
		}

		if prev, ok := best[rule.Consequent]; ok {
			stats.Duplicates++
			if rule.Score <= prev.Score {
				continue
			}
		}
		best[rule.Consequent] = rule
	}

	list := make([]Rule, 0, len(best))
	for _, r := range best {
		list = append(list, r)
	}
	SortRules(list)

	if len(list) > b.cfg.MaxRulesPerAntecedent {
		stats.Truncated += len(list) - b.cfg.MaxRulesPerAntecedent
		list = list[:b.cfg.MaxRulesPerAntecedent]
	}
	stats.Kept = len(list)

	return list, stats
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
