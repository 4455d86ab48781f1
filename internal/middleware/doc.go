// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package middleware provides HTTP instrumentation shared by the API router.
//
// PrometheusMetrics labels requests by chi route pattern so that user IDs in
// paths do not multiply series:
//
//	r := chi.NewRouter()
//	r.Use(middleware.PrometheusMetrics)
package middleware
