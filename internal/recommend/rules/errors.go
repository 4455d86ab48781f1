// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package rules

import (
	"errors"
	"fmt"
)

// ErrEmptyIndex is returned by callers that refuse to operate on an empty index.
var ErrEmptyIndex = errors.New("rule index is empty")

// ConfigurationError reports a persisted rule index that is missing, malformed,
// or produced by an unsupported algorithm. It is fatal at startup.
type ConfigurationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule index %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("rule index %s: %s", e.Path, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ValidationError reports a structurally invalid rule record found while loading.
type ValidationError struct {
	Context    string
	Antecedent string
	Position   int
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule %s/%s[%d]: field %q %s",
		e.Context, e.Antecedent, e.Position, e.Field, e.Reason)
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
