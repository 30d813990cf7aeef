// Package tracing wires an OpenTelemetry stdout exporter behind the
// ARGO_TRACE environment variable. Off by default; tracing a local
// single-user assistant is a debugging aid, not an always-on concern.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup installs the global tracer provider when ARGO_TRACE is set. The
// returned shutdown function flushes pending spans; it is a no-op when
// tracing is disabled.
func Setup(ctx context.Context) (func(context.Context) error, error) {
	if os.Getenv("ARGO_TRACE") == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
