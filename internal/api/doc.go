// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

/*
Package api provides the HTTP interface to the recommendation engine.

# Routes

	POST /api/v1/recommendations             body: recommend.Request
	GET  /api/v1/recommendations/user/{id}   basket from purchase history
	GET  /api/v1/rules/stats                 loaded index and table summary
	GET  /api/v1/health/live                 liveness probe
	GET  /api/v1/health/ready                readiness probe (index loaded)
	GET  /metrics                            Prometheus exposition

Every JSON endpoint answers with models.APIResponse. Validation failures use
code VALIDATION_ERROR and name the offending field in error.details.field.

# Middleware

Global: request id with logging context, RealIP, Recoverer, CORS. The /api/v1
group adds per-IP rate limiting (httprate), security headers, Prometheus
instrumentation labelled by route pattern, and gzip compression. Health
endpoints get their own, more permissive, rate limit.

# Usage

	handler, err := api.NewHandler(api.HandlerConfig{
	    Recommender:       dispatcher,
	    Stats:             rec,
	    History:           store,
	    HistoryBasketSize: cfg.Recommend.HistoryBasketSize,
	    Breaker:           dispatcher,
	    Version:           version,
	})
	router := api.NewRouter(handler, api.NewChiMiddlewareFromSecurity(
	    cfg.Security.CORSOrigins, cfg.Security.RateLimitReqs,
	    cfg.Security.RateLimitWindow, cfg.Security.RateLimitDisabled))
	server := &http.Server{Addr: addr, Handler: router.SetupChi()}
*/
package api
