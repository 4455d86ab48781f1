// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package adjust

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestBehaviorAdjuster_Apply(t *testing.T) {
	t.Parallel()
	a := NewBehaviorAdjuster(BehaviorWeights{
		1: {10: 2.0, 11: 0.5},
	}, zerolog.Nop())

	scores := map[int]float64{10: 1.0, 11: 1.0, 12: 0.4}

	tests := []struct {
		name    string
		cluster int
		want    map[int]float64
	}{
		{name: "known cluster", cluster: 1, want: map[int]float64{10: 2.0, 11: 0.5, 12: 0.4}},
		{name: "unknown cluster unchanged", cluster: 7, want: map[int]float64{10: 1.0, 11: 1.0, 12: 0.4}},
		{name: "default cluster", cluster: -1, want: map[int]float64{10: 1.0, 11: 1.0, 12: 0.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Apply(scores, tt.cluster)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// Input is never mutated and the result is a distinct map.
	got := a.Apply(scores, 7)
	got[10] = 99
	if scores[10] != 1.0 {
		t.Error("Apply must not alias its input")
	}
}

func TestPreferenceFilter_Apply(t *testing.T) {
	t.Parallel()
	f := NewPreferenceFilter(PreferenceWeights{
		2: {"produce": 0.8, "dairy": 0.3},
	}, zerolog.Nop())

	depts := map[int]string{1: "produce", 2: "dairy", 3: "frozen"}
	deptOf := func(id int) (string, bool) {
		d, ok := depts[id]
		return d, ok
	}
	items := []int{1, 2, 3, 4}

	got := f.Apply(items, 2, deptOf)
	want := map[int]float64{1: 0.8, 2: 0.3, 3: 0, 4: 0}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}

	got = f.Apply(items, 9, deptOf)
	want = map[int]float64{1: 0, 2: 0, 3: 0, 4: 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unknown cluster mismatch (-want +got):\n%s", diff)
	}

	if got := f.Apply(items, 2, nil); len(got) != 4 || got[1] != 0 {
		t.Errorf("nil department lookup should score 0, got %v", got)
	}
}

func TestLifecycleAdjuster_Adjust(t *testing.T) {
	t.Parallel()
	a := NewLifecycleAdjuster(nil, zerolog.Nop())

	// 10 items: head is the top 3.
	scores := map[int]float64{}
	for i := 1; i <= 10; i++ {
		scores[i] = float64(i)
	}

	tests := []struct {
		stage      string
		head, tail float64
	}{
		{stage: StageNew, head: 1.15, tail: 1.0},
		{stage: StageRegular, head: 1.0, tail: 1.0},
		{stage: StageLoyal, head: 0.95, tail: 1.10},
		{stage: StageUnknown, head: 1.0, tail: 1.0},
		{stage: "vip", head: 1.0, tail: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			got := a.Adjust(scores, tt.stage)
			want := map[int]float64{}
			for id, s := range scores {
				if id >= 8 {
					want[id] = s * tt.head
				} else {
					want[id] = s * tt.tail
				}
			}
			if diff := cmp.Diff(want, got, approx); diff != "" {
				t.Errorf("Adjust() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLifecycleAdjuster_HeadAtLeastOneAndTies(t *testing.T) {
	t.Parallel()
	a := NewLifecycleAdjuster(DefaultPolicies(), zerolog.Nop())

	// Three equal scores: head = max(1, int(0.9)) = 1, tie broken by lowest id.
	got := a.Adjust(map[int]float64{30: 1, 10: 1, 20: 1}, StageNew)
	want := map[int]float64{10: 1.15, 20: 1, 30: 1}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Adjust() mismatch (-want +got):\n%s", diff)
	}

	if got := a.Adjust(nil, StageNew); got == nil || len(got) != 0 {
		t.Errorf("Adjust(nil) = %v, want empty map", got)
	}
}
