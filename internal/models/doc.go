// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package models defines the HTTP response envelope shared by all API
// handlers. Recommendation payloads themselves live in package recommend.
package models
