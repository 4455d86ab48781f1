// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package candidate

import (
	"strconv"
	"time"
)

// Context dimension names, as written into context keys by the miner.
const (
	DimTimeBucket        = "time_bucket"
	DimIsWeekend         = "is_weekend"
	DimLifecycleStage    = "lifecycle_stage"
	DimPreferenceCluster = "preference_cluster"
	DimBehaviorCluster   = "behavior_cluster"
)

// Time buckets.
const (
	BucketNight     = "night"
	BucketMorning   = "morning"
	BucketAfternoon = "afternoon"
	BucketEvening   = "evening"
)

// Context is a rendered user context: dimension name to training-time string value.
type Context map[string]string

// UserContext carries the request-time and profile dimensions for one user.
type UserContext struct {
	TimeBucket        string `json:"time_bucket"`
	IsWeekend         bool   `json:"is_weekend"`
	LifecycleStage    string `json:"lifecycle_stage"`
	PreferenceCluster int    `json:"preference_cluster"`
	BehaviorCluster   int    `json:"behavior_cluster"`
}

// Dimensions renders the context with the same stringification the miner used:
// booleans as "1"/"0", clusters as decimal. Empty string fields are omitted.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (u UserContext) Dimensions() Context {
	c := Context{
		DimIsWeekend:         "0",
		DimPreferenceCluster: strconv.Itoa(u.PreferenceCluster),
		DimBehaviorCluster:   strconv.Itoa(u.BehaviorCluster),
	}
	if u.IsWeekend {
		c[DimIsWeekend] = "1"
	}
	if u.TimeBucket != "" {
		c[DimTimeBucket] = u.TimeBucket
	}
	if u.LifecycleStage != "" {
		c[DimLifecycleStage] = u.LifecycleStage
	}
	return c
}

// TimeBucketFor maps an hour of day to its bucket:
// night [0,6), morning [6,12), afternoon [12,18), evening [18,24).
func TimeBucketFor(hour int) string {
	switch {
	case hour < 6:
		return BucketNight
	case hour < 12:
		return BucketMorning
	case hour < 18:
		return BucketAfternoon
	default:
		return BucketEvening
	}
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// TimeBuckets lists the buckets in day order.
var TimeBuckets = []string{BucketNight, BucketMorning, BucketAfternoon, BucketEvening}

// ValidTimeBucket reports whether s names a known bucket.
func ValidTimeBucket(s string) bool {
	switch s {
	case BucketNight, BucketMorning, BucketAfternoon, BucketEvening:
		return true
	}
	return false
}
