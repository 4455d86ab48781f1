// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/basketrec/internal/models"
)

// RuleStats handles GET /api/v1/rules/stats: index sizes, per-level context
// counts, decays, the match threshold, table sizes and cache counters.
func (h *Handler) RuleStats(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	stats := h.stats.Stats()
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: models.StatusSuccess,
		Data:   stats,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
