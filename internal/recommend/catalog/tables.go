// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package catalog holds the precomputed lookup data the recommender reads at
// request time: popularity tables, the product to department map, adjuster
// weight tables, user profiles and purchase history.
//
// Everything except history is loaded once at startup and treated as
// immutable. Data can come from a JSON file or from the BadgerDB-backed
// Store that the rulebuild import command populates.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"github.com/tomtom215/basketrec/internal/recommend/adjust"
)

// Tables are the popularity lists and lookup tables used for fallback recall
// and personalization. Every list is ordered most popular first.
type Tables struct {
	// Global is the catalog-wide popularity list used for insurance.
	Global []int `json:"global"`

	// Frequent ranks items by purchase frequency. It is the last popularity
	// tier before department similarity.
	Frequent []int `json:"frequent"`

	ByTimeBucket map[string][]int `json:"by_time_bucket"`
	ByLifecycle  map[string][]int `json:"by_lifecycle"`
	ByBehavior   map[int][]int    `json:"by_behavior"`

	// Departments maps item id to department name.
	Departments map[int]string `json:"departments"`

	BehaviorWeights   adjust.BehaviorWeights   `json:"behavior_weights"`
	PreferenceWeights adjust.PreferenceWeights `json:"preference_weights"`
}

// TableStats summarizes Tables for logging and the stats endpoint.
type TableStats struct {
	Global             int `json:"global"`
	Frequent           int `json:"frequent"`
	TimeBuckets        int `json:"time_buckets"`
	LifecycleStages    int `json:"lifecycle_stages"`
	BehaviorClusters   int `json:"behavior_clusters"`
	Departments        int `json:"departments"`
	BehaviorWeighted   int `json:"behavior_weighted_clusters"`
	PreferenceWeighted int `json:"preference_weighted_clusters"`
}

// Stats counts the entries of each table.
func (t *Tables) Stats() TableStats {
	return TableStats{
		Global:             len(t.Global),
		Frequent:           len(t.Frequent),
		TimeBuckets:        len(t.ByTimeBucket),
		LifecycleStages:    len(t.ByLifecycle),
		BehaviorClusters:   len(t.ByBehavior),
		Departments:        len(t.Departments),
		BehaviorWeighted:   len(t.BehaviorWeights),
		PreferenceWeighted: len(t.PreferenceWeights),
	}
}

// Department returns the item's department.
func (t *Tables) Department(item int) (string, bool) {
	d, ok := t.Departments[item]
	return d, ok
}

// ItemsByDepartment groups items by department, each group in ascending id order.
func (t *Tables) ItemsByDepartment() map[string][]int {
	out := make(map[string][]int)
	for id, dept := range t.Departments {
		out[dept] = append(out[dept], id)
	}
	for _, ids := range out {
		sort.Ints(ids)
	}
	return out
}

// normalize replaces nil maps with empty ones so lookups never need nil checks.
func (t *Tables) normalize() {
	if t.ByTimeBucket == nil {
		t.ByTimeBucket = map[string][]int{}
	}
	if t.ByLifecycle == nil {
		t.ByLifecycle = map[string][]int{}
	}
	if t.ByBehavior == nil {
		t.ByBehavior = map[int][]int{}
	}
	if t.Departments == nil {
		t.Departments = map[int]string{}
	}
	if t.BehaviorWeights == nil {
		t.BehaviorWeights = adjust.BehaviorWeights{}
	}
	if t.PreferenceWeights == nil {
		t.PreferenceWeights = adjust.PreferenceWeights{}
	}
}

// NewTables returns empty, ready-to-fill Tables.
func NewTables() *Tables {
	t := &Tables{}
	t.normalize()
	return t
}

// LoadTablesFile reads Tables from a JSON document.
func LoadTablesFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}
	var t Tables
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables file %s: %w", path, err)
	}
	t.normalize()
	return &t, nil
}
