// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package logging provides the process-wide zerolog logger.
//
// JSON output is the default; console output is meant for development.
// Components derive child loggers with a "component" field and take them as
// constructor arguments:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	rec, err := recommend.New(deps, cfg, logging.WithComponent("recommend"))
//
// Request-scoped lines go through Ctx, which attaches the request and
// correlation ids stored by the HTTP middleware:
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("history lookup failed")
//
// SlogHandler adapts zerolog to log/slog for the supervisor's sutureslog
// event hook.
package logging
