// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package candidate implements context-aware rule recall.
//
// The Generator buckets every stored context key into a hierarchy level at
// construction time. A request walks the levels from most to least specific,
// relaxed-matches each stored context against the user's context, and
// accumulates decayed rule scores for every antecedent drawn from the basket.
//
// An empty result means no rule matched anywhere; callers fall back to
// popularity recall.
package candidate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basketrec/internal/recommend/rules"
)

// Config holds recall parameters.
type Config struct {
	// MatchThreshold is the minimum fraction of a stored context's dimension
	// pairs that must equal the user's values.
	// Default: 0.6
	MatchThreshold float64 `json:"match_threshold"`

	// MaxAntecedentLen bounds the size of basket subsets used as antecedents.
	// Default: 3
	MaxAntecedentLen int `json:"max_antecedent_len"`

	// MaxBasket caps the deduplicated basket before subsets are enumerated.
	// Default: 20
	MaxBasket int `json:"max_basket"`
}

// DefaultConfig returns the production recall parameters.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:   0.6,
		MaxAntecedentLen: 3,
		MaxBasket:        20,
	}
}

// Validate checks the configuration.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (c Config) Validate() error {
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be in [0, 1], got %f", c.MatchThreshold)
	}
	if c.MaxAntecedentLen < 1 {
		return fmt.Errorf("max_antecedent_len must be positive, got %d", c.MaxAntecedentLen)
	}
	if c.MaxBasket < 1 {
		return fmt.Errorf("max_basket must be positive, got %d", c.MaxBasket)
	}
	return nil
}

// MatchedContext records one stored context that contributed to a result.
type MatchedContext struct {
	Level string  `json:"level"`
	Key   string  `json:"key"`
	Ratio float64 `json:"ratio"`
	Decay float64 `json:"decay"`
	Hits  int     `json:"hits"`
}

func (m MatchedContext) String() string {
	return fmt.Sprintf("%s::%s (hits=%d, decay=%.2f, ratio=%.2f)", m.Level, m.Key, m.Hits, m.Decay, m.Ratio)
}

// Result is the output of Generate. Scores and Levels cover exactly Items.
type Result struct {
	Items  []int           `json:"items"`
	Scores map[int]float64 `json:"scores"`

	// Levels lists, per item, the hierarchy levels that contributed, most
	// specific first.
	Levels map[int][]string `json:"levels"`

	MatchedContexts []MatchedContext `json:"matched_contexts"`
}

func emptyResult() Result {
	return Result{
		Items:           []int{},
		Scores:          map[int]float64{},
		Levels:          map[int][]string{},
		MatchedContexts: []MatchedContext{},
	}
}

type dimPair struct {
	dim, value string
}

type storedContext struct {
	key    string
	global bool
	pairs  []dimPair
	// malformed counts key parts without "=", which never match.
	malformed int
	index     rules.RuleIndex
}

type levelBucket struct {
	level    Level
	contexts []storedContext
}

// Generator recalls candidates from an immutable ContextRuleIndex. It is safe
// for concurrent use.
type Generator struct {
	cfg       Config
	hierarchy Hierarchy
	levels    []levelBucket
	stats     rules.IndexStats
	logger    zerolog.Logger
}

// New buckets index by hierarchy level. The index is retained, not copied,
// and must not be mutated afterwards.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(index rules.ContextRuleIndex, hierarchy Hierarchy, cfg Config, logger zerolog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid candidate config: %w", err)
	}
	if err := hierarchy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid context hierarchy: %w", err)
	}
	if len(index) == 0 {
		return nil, rules.ErrEmptyIndex
	}

	g := &Generator{
		cfg:       cfg,
		hierarchy: hierarchy,
		levels:    make([]levelBucket, len(hierarchy)),
		stats:     index.Stats(),
		logger:    logger.With().Str("component", "candidate_generator").Logger(),
	}
	for i, lvl := range hierarchy {
		g.levels[i].level = lvl
	}

	// ContextKeys is sorted, so every bucket iterates deterministically.
	for _, key := range index.ContextKeys() {
		li := hierarchy.InferLevel(key)
		g.levels[li].contexts = append(g.levels[li].contexts, parseContext(key, index[key]))
	}

	ev := g.logger.Info().
		Int("contexts", g.stats.Contexts).
		Int("antecedents", g.stats.Antecedents).
		Int("rules", g.stats.Rules).
		Float64("match_threshold", cfg.MatchThreshold).
		Int("max_antecedent_len", cfg.MaxAntecedentLen)
	for _, b := range g.levels {
		ev = ev.Int("contexts_"+b.level.Name, len(b.contexts))
	}
	ev.Msg("candidate generator initialized")

	return g, nil
}

func parseContext(key string, idx rules.RuleIndex) storedContext {
	sc := storedContext{key: key, index: idx}
	if key == rules.GlobalContext {
		sc.global = true
		return sc
	}
	for _, part := range strings.Split(key, "|") {
		dim, value, ok := strings.Cut(part, "=")
		if !ok {
			sc.malformed++
			continue
		}
		sc.pairs = append(sc.pairs, dimPair{dim: dim, value: value})
	}
	return sc
}

// matchRatio returns the fraction of the stored pairs equal to the user's values.
func (sc *storedContext) matchRatio(uc Context) float64 {
	if sc.global {
		return 1.0
	}
	total := len(sc.pairs) + sc.malformed
	if total == 0 {
		return 0
	}
	matched := 0
	for _, p := range sc.pairs {
		if v, ok := uc[p.dim]; ok && v == p.value {
			matched++
		}
	}
	return float64(matched) / float64(total)
}

// Config returns the recall parameters.
func (g *Generator) Config() Config {
	return g.cfg
}

// Hierarchy returns the level definitions.
func (g *Generator) Hierarchy() Hierarchy {
	return g.hierarchy
}

// Stats returns the size of the loaded index.
func (g *Generator) Stats() rules.IndexStats {
	return g.stats
}

// ContextsPerLevel counts stored contexts per level name.
func (g *Generator) ContextsPerLevel() map[string]int {
	out := make(map[string]int, len(g.levels))
	for _, b := range g.levels {
		out[b.level.Name] = len(b.contexts)
	}
	return out
}

// Generate recalls up to topK candidates for basket under uc. A topK of zero
// or less returns every candidate. No returned item is in the basket.
func (g *Generator) Generate(basket []int, uc Context, topK int) Result {
	if len(basket) == 0 {
		return emptyResult()
	}

	items := rules.CanonicalItems(basket)
	inBasket := make(map[int]bool, len(items))
	for _, id := range items {
		inBasket[id] = true
	}
	if len(items) > g.cfg.MaxBasket {
		items = items[:g.cfg.MaxBasket]
	}
	antecedents := antecedentKeys(items, g.cfg.MaxAntecedentLen)

	scores := make(map[int]float64)
	contributed := make(map[int][]bool)
	matched := make([]MatchedContext, 0)

	for li := range g.levels {
		b := &g.levels[li]
		decay := b.level.Decay

		for ci := range b.contexts {
			sc := &b.contexts[ci]
			ratio := sc.matchRatio(uc)
			if !sc.global && ratio < g.cfg.MatchThreshold {
				continue
			}

			hits := 0
			for _, ant := range antecedents {
				for _, r := range sc.index[ant] {
					if inBasket[r.Consequent] {
						continue
					}
					scores[r.Consequent] += r.Score * decay * ratio

					lv, ok := contributed[r.Consequent]
					if !ok {
						lv = make([]bool, len(g.levels))
						contributed[r.Consequent] = lv
					}
					lv[li] = true
					hits++
				}
			}
			if hits > 0 {
				matched = append(matched, MatchedContext{
					Level: b.level.Name,
					Key:   sc.key,
					Ratio: ratio,
					Decay: decay,
					Hits:  hits,
				})
			}
		}
	}

	if len(scores) == 0 {
		res := emptyResult()
		res.MatchedContexts = matched
		g.logger.Debug().Int("basket", len(basket)).Msg("no rules matched")
		return res
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
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	res := Result{
		Items:           ranked,
		Scores:          make(map[int]float64, len(ranked)),
		Levels:          make(map[int][]string, len(ranked)),
		MatchedContexts: matched,
	}
	for _, id := range ranked {
		res.Scores[id] = scores[id]
		var names []string
		for li, ok := range contributed[id] {
			if ok {
				names = append(names, g.levels[li].level.Name)
			}
		}
		res.Levels[id] = names
	}

	g.logger.Debug().
		Int("basket", len(basket)).
		Int("antecedents", len(antecedents)).
		Int("matched_contexts", len(matched)).
		Int("candidates", len(scores)).
		Int("returned", len(ranked)).
		Msg("rule recall complete")

	return res
}

// antecedentKeys enumerates every non-empty subset of items with at most
// maxLen elements, in lexicographic order by size. items must be canonical.
func antecedentKeys(items []int, maxLen int) []string {
	if maxLen > len(items) {
		maxLen = len(items)
	}
	var keys []string
	combo := make([]int, 0, maxLen)

	var walk func(start, size int)
	walk = func(start, size int) {
		if len(combo) == size {
			keys = append(keys, rules.AntecedentKey(combo))
			return
		}
		for i := start; i < len(items); i++ {
			combo = append(combo, items[i])
			walk(i+1, size)
			combo = combo[:len(combo)-1]
		}
	}
	for size := 1; size <= maxLen; size++ {
		walk(0, size)
	}
	return keys
}
