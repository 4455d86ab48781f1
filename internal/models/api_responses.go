// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes returned in APIError.Code.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
	ErrCodeRecommendFailed = "RECOMMENDATION_ERROR"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// APIResponse is the envelope for every JSON endpoint.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"item_ids": [202, 303, 11]},
//	  "metadata": {
//	    "timestamp": "2026-03-04T09:00:00Z",
//	    "query_time_ms": 3
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "user_id is required",
//	    "details": {"field": "user_id"}
//	  },
//	  "metadata": {"timestamp": "2026-03-04T09:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response timing and cache information.
//
// Cached responses report the time spent serving from the cache, not the
// time of the original pipeline run.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	Degraded    string    `json:"degraded,omitempty"`
}

// APIError carries a machine-readable code, a message and optional details
// such as the offending field.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse is returned by the liveness and readiness endpoints.
type HealthResponse struct {
	Status      string    `json:"status"`
	Version     string    `json:"version"`
	IndexLoaded bool      `json:"index_loaded"`
	Breaker     string    `json:"breaker_state,omitempty"`
	Uptime      float64   `json:"uptime_seconds"`
	CheckedAt   time.Time `json:"checked_at"`
}
