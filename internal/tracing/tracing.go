// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

// Package tracing installs the OpenTelemetry tracer provider used by the
// recommendation pipeline spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ErrUnknownExporter is returned for an exporter name Init does not support.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config configures tracing.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Exporter is "stdout" or "none".
	Exporter string

	// SampleRatio is the fraction of root traces sampled, in [0, 1].
	SampleRatio float64

	// Writer receives stdout exporter output. Nil means os.Stdout.
	Writer io.Writer
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init builds a tracer provider for cfg and installs it globally. With the
// "none" exporter the global no-op provider is left in place.
//
//nolint:gocritic // hugeParam: cfg passed by value for immutability
func Init(cfg Config) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, nil, fmt.Errorf("sample ratio must be in [0, 1], got %f", cfg.SampleRatio)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case ExporterNone, "":
		return nil, func(context.Context) error { return nil }, nil
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	return tp, tp.Shutdown, nil
}
