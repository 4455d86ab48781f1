// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()
	if !ValidLevel("Warn") || ValidLevel("verbose") {
		t.Error("ValidLevel misclassified a level")
	}
}

// Init mutates global state, so these tests are not parallel.
func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := WithComponent("recommend")
	logger.Info().Int("returned", 3).Msg("recommendation complete")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if line["component"] != "recommend" || line["message"] != "recommendation complete" || line["level"] != "info" {
		t.Errorf("unexpected log line: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestCtx(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")

	Ctx(ctx).Info().Msg("served")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"correlation_id":"corr-1"`, `"served"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if RequestIDFromContext(context.Background()) != "" || CorrelationIDFromContext(context.Background()) != "" {
		t.Error("empty context returned ids")
	}
}

func TestGenerateIDs(t *testing.T) {
	t.Parallel()
	if len(GenerateCorrelationID()) != 8 {
		t.Error("correlation id should be 8 characters")
	}
	a, b := GenerateRequestID(), GenerateRequestID()
	if len(a) != 36 || a == b {
		t.Errorf("request ids %q, %q", a, b)
	}
}

func TestSlogHandler(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(zerolog.New(&buf).Level(zerolog.InfoLevel)))

	logger.Debug("hidden")
	logger.With("supervisor", "basketrec").WithGroup("svc").Warn("service restarted",
		"name", "http-server", "attempt", 2, "backoff", true)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line emitted at info level: %s", out)
	}
	for _, want := range []string{`"level":"warn"`, `"supervisor":"basketrec"`, `"svc.name":"http-server"`, `"svc.attempt":2`, `"svc.backoff":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
