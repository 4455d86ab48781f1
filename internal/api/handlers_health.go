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

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK while the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: models.StatusSuccess,
		Data: models.HealthResponse{
			Status:      "alive",
			Version:     h.version,
			IndexLoaded: h.indexLoaded(),
			Uptime:      time.Since(h.startTime).Seconds(),
			CheckedAt:   time.Now(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 503 until a rule index with at least one context is loaded. An
// open circuit breaker is reported but does not fail readiness, since the
// service still answers from the popularity tables.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	loaded := h.indexLoaded()

	statusCode := http.StatusOK
	status := "ready"
	if !loaded {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	health := models.HealthResponse{
		Status:      status,
		Version:     h.version,
		IndexLoaded: loaded,
		Uptime:      time.Since(h.startTime).Seconds(),
		CheckedAt:   time.Now(),
	}
	if h.breaker != nil {
		health.Breaker = h.breaker.State()
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: models.StatusSuccess,
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

func (h *Handler) indexLoaded() bool {
	return h.stats.Stats().Index.Contexts > 0
}
