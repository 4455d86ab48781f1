// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/tomtom215/basketrec/internal/validation"
)

// UserProfile holds the offline-assigned clusters and lifecycle stage of a user.
type UserProfile struct {
	UserID            int    `json:"user_id" validate:"required,gt=0"`
	BehaviorCluster   int    `json:"behavior_cluster"`
	PreferenceCluster int    `json:"preference_cluster"`
	LifecycleStage    string `json:"lifecycle_stage"`
}

// UserDefaults fill in profiles for unknown users.
type UserDefaults struct {
	BehaviorCluster   int    `json:"behavior_cluster" koanf:"behavior_cluster"`
	PreferenceCluster int    `json:"preference_cluster" koanf:"preference_cluster"`
	LifecycleStage    string `json:"lifecycle_stage" koanf:"lifecycle_stage"`
}

// DefaultUserDefaults returns the profile assigned to users without data.
func DefaultUserDefaults() UserDefaults {
	return UserDefaults{
		BehaviorCluster:   -1,
		PreferenceCluster: -1,
		LifecycleStage:    "unknown",
	}
}

// Profile returns the default profile for userID.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (d UserDefaults) Profile(userID int) UserProfile {
	return UserProfile{
		UserID:            userID,
		BehaviorCluster:   d.BehaviorCluster,
		PreferenceCluster: d.PreferenceCluster,
		LifecycleStage:    d.LifecycleStage,
	}
}

// UserContextLoader resolves a user's profile. Unknown users get the
// configured defaults; an error means the backing store itself failed.
type UserContextLoader interface {
	UserContext(ctx context.Context, userID int) (UserProfile, error)
}

// StaticUserLoader serves profiles from memory.
type StaticUserLoader struct {
	profiles map[int]UserProfile
	defaults UserDefaults
}

// NewStaticUserLoader creates a loader over profiles.
func NewStaticUserLoader(profiles []UserProfile, defaults UserDefaults) *StaticUserLoader {
	m := make(map[int]UserProfile, len(profiles))
	for _, p := range profiles {
		m[p.UserID] = p
	}
	return &StaticUserLoader{profiles: m, defaults: defaults}
}

// UserContext implements UserContextLoader.
func (l *StaticUserLoader) UserContext(_ context.Context, userID int) (UserProfile, error) {
	if p, ok := l.profiles[userID]; ok {
		return p, nil
	}
	return l.defaults.Profile(userID), nil
}

// Len returns the number of known users.
func (l *StaticUserLoader) Len() int {
	return len(l.profiles)
}

// LoadUsersFile reads a JSON array of UserProfile. Every profile must carry
// a positive user_id.
func LoadUsersFile(path string) ([]UserProfile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var users []UserProfile
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	for i := range users {
		if verr := validation.ValidateStruct(&users[i]); verr != nil {
			return nil, fmt.Errorf("users file %s: record %d: %w", path, i, verr)
		}
	}
	return users, nil
}
