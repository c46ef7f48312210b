package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "routerd"

// StartRouteSpan starts a span for one routing request.
func StartRouteSpan(ctx context.Context, keyword string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "route",
		trace.WithAttributes(
			attribute.String("routing.keyword", keyword),
		),
	)
}

// StartValidationSpan starts a span covering the wait on a pending validation.
func StartValidationSpan(ctx context.Context, validationID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "validation.await",
		trace.WithAttributes(
			attribute.String("validation.id", validationID),
		),
	)
}

// StartForwardSpan starts a span for dispatch to a downstream agent.
func StartForwardSpan(ctx context.Context, agent string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "forward",
		trace.WithAttributes(
			attribute.String("routing.agent", agent),
		),
	)
}
