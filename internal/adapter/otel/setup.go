// Package otel provides OpenTelemetry tracing helpers for routerd.
// Tracer provider wiring is a stub until an OTLP collector is deployed;
// span helpers and HTTP middleware use the global tracer.
package otel

import (
	"context"
	"log/slog"
)

// ShutdownFunc is called to flush and shut down the trace provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer returns a no-op shutdown function. Exporter setup lands when the
// shared collector endpoint exists.
func InitTracer(serviceName string) ShutdownFunc {
	slog.Info("otel: using global tracer", "service", serviceName)
	return func(_ context.Context) error {
		return nil
	}
}
