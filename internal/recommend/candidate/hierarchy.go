// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package candidate

import (
	"fmt"
	"strings"

	"github.com/tomtom215/basketrec/internal/recommend/rules"
)

// Level is one specificity tier of the context hierarchy.
type Level struct {
	Name       string   `json:"name"`
	Dimensions []string `json:"dimensions"`

	// Decay multiplies every rule score recalled at this level.
	Decay float64 `json:"decay"`
}

// Hierarchy orders levels from most to least specific. Each level's dimension
// set is a strict subset of the previous one and the last level has none.
type Hierarchy []Level

// DefaultHierarchy returns the L1..L5 hierarchy the miner buckets rules by.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{
		{Name: "L1", Decay: 2.0, Dimensions: []string{DimTimeBucket, DimIsWeekend, DimLifecycleStage, DimPreferenceCluster, DimBehaviorCluster}},
		{Name: "L2", Decay: 1.8, Dimensions: []string{DimTimeBucket, DimIsWeekend, DimLifecycleStage, DimPreferenceCluster}},
		{Name: "L3", Decay: 1.5, Dimensions: []string{DimTimeBucket, DimIsWeekend, DimLifecycleStage}},
		{Name: "L4", Decay: 1.2, Dimensions: []string{DimTimeBucket, DimIsWeekend}},
		{Name: "L5", Decay: 0.3, Dimensions: []string{}},
	}
}

// Validate checks nesting, names and decays.
func (h Hierarchy) Validate() error {
	if len(h) == 0 {
		return fmt.Errorf("hierarchy must have at least one level")
	}
	seen := make(map[string]bool, len(h))
	for i, lvl := range h {
		if lvl.Name == "" {
			return fmt.Errorf("level %d has no name", i)
		}
		if seen[lvl.Name] {
			return fmt.Errorf("duplicate level name %q", lvl.Name)
		}
		seen[lvl.Name] = true
		if lvl.Decay < 0 {
			return fmt.Errorf("level %s: decay must be non-negative, got %f", lvl.Name, lvl.Decay)
		}
		if i == 0 {
			continue
		}
		prev := h[i-1]
		if len(lvl.Dimensions) >= len(prev.Dimensions) || !subset(lvl.Dimensions, toSet(prev.Dimensions)) {
			return fmt.Errorf("level %s is not strictly nested in %s", lvl.Name, prev.Name)
		}
	}
	if last := h[len(h)-1]; len(last.Dimensions) != 0 {
		return fmt.Errorf("least specific level %s must have no dimensions", last.Name)
	}
	return nil
}

// WithDecays returns a copy of h with decays overridden by level name.
// Unknown names are reported as an error.
func (h Hierarchy) WithDecays(decays map[string]float64) (Hierarchy, error) {
	out := make(Hierarchy, len(h))
	copy(out, h)
	names := make(map[string]int, len(h))
	for i, lvl := range out {
		names[lvl.Name] = i
	}
	for name, d := range decays {
		i, ok := names[name]
		if !ok {
			return nil, fmt.Errorf("unknown hierarchy level %q", name)
		}
		out[i].Decay = d
	}
	return out, nil
}

// Names returns the level names in order.
func (h Hierarchy) Names() []string {
	out := make([]string, len(h))
	for i, lvl := range h {
		out[i] = lvl.Name
	}
	return out
}

// InferLevel returns the index of the level a stored context key belongs to:
// the level with the largest dimension set fully present in the key. GLOBAL
// always maps to the least specific level.
func (h Hierarchy) InferLevel(contextKey string) int {
	last := len(h) - 1
	if contextKey == rules.GlobalContext {
		return last
	}

	present := make(map[string]bool)
	for _, part := range strings.Split(contextKey, "|") {
		if dim, _, ok := strings.Cut(part, "="); ok {
			present[dim] = true
		}
	}

	best, bestLen := last, -1
	for i, lvl := range h {
		if subset(lvl.Dimensions, present) && len(lvl.Dimensions) > bestLen {
			best, bestLen = i, len(lvl.Dimensions)
		}
	}
	return best
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

func subset(items []string, set map[string]bool) bool {
	for _, s := range items {
		if !set[s] {
			return false
		}
	}
	return true
}
