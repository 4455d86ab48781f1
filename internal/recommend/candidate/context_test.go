// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package candidate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestUserContext_Dimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uc   UserContext
		want Context
	}{
		{
			name: "full",
			uc:   UserContext{TimeBucket: BucketEvening, IsWeekend: true, LifecycleStage: "loyal", PreferenceCluster: 3, BehaviorCluster: 1},
			want: Context{
				DimTimeBucket:        "evening",
				DimIsWeekend:         "1",
				DimLifecycleStage:    "loyal",
				DimPreferenceCluster: "3",
				DimBehaviorCluster:   "1",
			},
		},
		{
			name: "defaults",
			uc:   UserContext{PreferenceCluster: -1, BehaviorCluster: -1},
			want: Context{
				DimIsWeekend:         "0",
				DimPreferenceCluster: "-1",
				DimBehaviorCluster:   "-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.uc.Dimensions()); diff != "" {
				t.Errorf("Dimensions() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTimeBucketFor(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0: BucketNight, 5: BucketNight,
		6: BucketMorning, 11: BucketMorning,
		12: BucketAfternoon, 17: BucketAfternoon,
		18: BucketEvening, 23: BucketEvening,
	}
	for hour, want := range tests {
		if got := TimeBucketFor(hour); got != want {
			t.Errorf("TimeBucketFor(%d) = %s, want %s", hour, got, want)
		}
		if !ValidTimeBucket(want) {
			t.Errorf("ValidTimeBucket(%s) = false", want)
		}
	}
	if ValidTimeBucket("noon") {
		t.Error("ValidTimeBucket(noon) = true")
	}
}

func TestIsWeekend(t *testing.T) {
	t.Parallel()

	// 2026-01-03 is a Saturday.
	sat := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	for i, want := range []bool{true, true, false, false, false, false, false} {
		day := sat.AddDate(0, 0, i)
		if got := IsWeekend(day); got != want {
			t.Errorf("IsWeekend(%s) = %v, want %v", day.Weekday(), got, want)
		}
	}
}
