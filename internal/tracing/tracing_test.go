// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestInit_None(t *testing.T) {
	t.Parallel()
	tp, shutdown, err := Init(Config{Exporter: ExporterNone, SampleRatio: 1})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if tp != nil {
		t.Error("none exporter should not build a provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInit_Errors(t *testing.T) {
	t.Parallel()
	if _, _, err := Init(Config{Exporter: "zipkin", SampleRatio: 1}); !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("error = %v, want ErrUnknownExporter", err)
	}
	if _, _, err := Init(Config{Exporter: ExporterStdout, SampleRatio: 2}); err == nil {
		t.Error("sample ratio above 1 accepted")
	}
}

// Installs a global provider, so not parallel.
func TestInit_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := Init(Config{
		ServiceName: "basketrec-test",
		Exporter:    ExporterStdout,
		SampleRatio: 1,
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "recommend.recall")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "recommend.recall") || !strings.Contains(out, "basketrec-test") {
		t.Errorf("exported output missing span or service name: %s", out)
	}
}
