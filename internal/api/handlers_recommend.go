// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/basketrec/internal/logging"
	"github.com/tomtom215/basketrec/internal/models"
	"github.com/tomtom215/basketrec/internal/recommend"
)

// PostRecommendations handles POST /api/v1/recommendations.
//
// Body:
//
//	{"user_id": 7, "basket": [101, 205], "time_bucket": "evening",
//	 "is_weekend": false, "top_k": 10, "return_metadata": true}
//
// time_bucket and is_weekend default to the server clock.
func (h *Handler) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeInvalidJSON, err.Error(), nil)
		return
	}
	h.serveRecommendation(w, r, req)
}

// UserRecommendations handles GET /api/v1/recommendations/user/{userID}.
// The basket is the user's most recent purchases from the catalog store.
//
// Query parameters: top_k, time_bucket, is_weekend, return_metadata.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		respondErrorDetails(w, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrCodeValidation,
			Message: "userID must be an integer",
			Details: map[string]interface{}{"field": "user_id"},
		}, nil)
		return
	}

	topK, err := parseIntParam(r, "top_k", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}
	weekend, err := parseBoolParam(r, "is_weekend")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}
	withMeta, err := parseBoolParam(r, "return_metadata")
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	req := recommend.Request{
		UserID:         userID,
		TimeBucket:     r.URL.Query().Get("time_bucket"),
		IsWeekend:      weekend,
		TopK:           topK,
		ReturnMetadata: withMeta != nil && *withMeta,
	}
	// Validate before touching the store so bad ids never reach it.
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeUnavailable,
			"Purchase history is not configured", nil)
		return
	}
	basket, err := h.history.RecentItems(r.Context(), userID, h.historyBasketSize)
	if err != nil {
		if r.Context().Err() != nil {
			respondError(w, http.StatusServiceUnavailable, models.ErrCodeUnavailable, "Request canceled", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to read purchase history", err)
		return
	}
	req.Basket = basket

	h.serveRecommendation(w, r, req)
}

// serveRecommendation validates req, runs it, and writes the envelope.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (h *Handler) serveRecommendation(w http.ResponseWriter, r *http.Request, req recommend.Request) {
	start := time.Now()

	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}
	if req.RequestID == "" {
		req.RequestID = logging.RequestIDFromContext(r.Context())
	}

	resp, err := h.recommender.Recommend(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logging.Ctx(r.Context()).Warn().Err(err).Int("user_id", req.UserID).Msg("recommendation abandoned")
			respondError(w, http.StatusServiceUnavailable, models.ErrCodeUnavailable, "Request canceled", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeRecommendFailed, "Failed to build recommendations", err)
		return
	}

	meta := models.Metadata{
		Timestamp:   time.Now(),
		QueryTimeMS: time.Since(start).Milliseconds(),
	}
	if resp.Metadata != nil {
		meta.Cached = resp.Metadata.CacheHit
		if resp.Metadata.Degraded {
			meta.Degraded = resp.Metadata.DegradedReason
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     resp,
		Metadata: meta,
	})
}
