// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package cache

import (
	"crypto/sha256"
	"fmt"

	"github.com/goccy/go-json"
)

// GenerateKey derives a compact cache key from a prefix and the JSON form of
// params. Equal params always produce equal keys.
func GenerateKey(prefix string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", prefix, hash[:16])
}
