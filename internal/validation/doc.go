// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built on first use and shared; it caches
// struct metadata and is safe for concurrent use. Field names in errors are
// taken from json tags so messages match request bodies.
//
// Custom tags:
//   - time_bucket: night, morning, afternoon or evening
//
// Errors convert to the VALIDATION_ERROR API format:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, verr)
//	    return
//	}
package validation
