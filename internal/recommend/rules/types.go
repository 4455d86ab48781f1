// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package rules defines the association rule records consumed by the recall
// engine and the offline builder that turns raw mined rules into them.
//
// # Keys
//
// Antecedent keys are pipe-joined, numerically sorted item ids ("12|40|977").
// Context keys are either the literal GLOBAL or pipe-joined, sorted
// dimension=value pairs ("is_weekend=1|time_bucket=morning").
//
// # Immutability
//
// A ContextRuleIndex is built offline, persisted once and loaded once at process
// start. Nothing in this module mutates an index after it has been returned.
package rules

import (
	"crypto/md5" //nolint:gosec // identity hash for rule ids, not a security boundary
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// GlobalContext is the context key for rules mined without any context dimension.
const GlobalContext = "GLOBAL"

// Rule is a single cleaned association rule: antecedent => consequent.
type Rule struct {
	// RuleID is a stable hash of antecedent and consequent.
	RuleID string `json:"rule_id"`

	// Antecedent holds deduplicated, ascending item ids.
	Antecedent []int `json:"antecedent"`

	Consequent int     `json:"consequent"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
	Support    float64 `json:"support"`

	// Score is the unified ranking score computed by the Builder.
	Score float64 `json:"score"`
}

// RuleIndex maps an antecedent key to its rules, best first.
type RuleIndex map[string][]Rule

// ContextRuleIndex maps a context key to the rule index mined for that context.
type ContextRuleIndex map[string]RuleIndex

// IndexStats summarizes the size of a ContextRuleIndex.
type IndexStats struct {
	Contexts    int `json:"contexts"`
	Antecedents int `json:"antecedents"`
	Rules       int `json:"rules"`
}

// Stats counts contexts, antecedent keys and rules.
func (c ContextRuleIndex) Stats() IndexStats {
	var s IndexStats
	s.Contexts = len(c)
	for _, idx := range c {
		s.Antecedents += len(idx)
		for _, list := range idx {
			s.Rules += len(list)
		}
	}
	return s
}

// ContextKeys returns the context keys in ascending order.
func (c ContextRuleIndex) ContextKeys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CanonicalItems returns a sorted copy of items with duplicates removed.
func CanonicalItems(items []int) []int {
	if len(items) == 0 {
		return []int{}
	}
	out := make([]int, len(items))
	copy(out, items)
	sort.Ints(out)

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// AntecedentKey renders items as a canonical antecedent key.
func AntecedentKey(items []int) string {
	return joinSorted(CanonicalItems(items))
}

// joinSorted joins already-canonical ids with "|".
func joinSorted(items []int) string {
	var b strings.Builder
	for i, id := range items {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

// ParseAntecedentKey parses a pipe-joined antecedent key into canonical item ids.
func ParseAntecedentKey(key string) ([]int, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("empty antecedent key")
	}
	parts := strings.Split(key, "|")
	items := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("antecedent key %q: invalid item id %q", key, p)
		}
		items = append(items, id)
	}
	return CanonicalItems(items), nil
}

// RuleID returns the identity hash of a rule: the MD5 hex of the antecedent
// ids, sorted as decimal strings and joined with "|", followed by
// "->consequent". String order keeps ids identical to the ones the rule
// miner writes ("10|9->3", not "9|10->3").
func RuleID(antecedent []int, consequent int) string {
	ids := make([]string, len(antecedent))
	for i, id := range antecedent {
		ids[i] = strconv.Itoa(id)
	}
	sort.Strings(ids)
	sum := md5.Sum([]byte(strings.Join(ids, "|") + "->" + strconv.Itoa(consequent))) //nolint:gosec // identity only
	return hex.EncodeToString(sum[:])
}

// SortRules orders rules by score descending, then consequent ascending.
func SortRules(list []Rule) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Consequent < list[j].Consequent
	})
}

// RawRule is one rule as emitted by the offline miner. Pointer fields
// distinguish a missing value from a zero value.
type RawRule struct {
	Consequent *int     `json:"consequent"`
	Confidence *float64 `json:"confidence"`
	Lift       *float64 `json:"lift"`
	Support    *float64 `json:"support,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

// RawIndex is the miner's per-antecedent output for one context.
type RawIndex map[string][]RawRule

// RawContextIndex is the miner's full output keyed by context.
type RawContextIndex map[string]RawIndex
