package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "arbiter"

// StartSpan starts a span on the arbiter tracer with project and step
// attributes attached.
func StartSpan(ctx context.Context, name, projectID, stepID string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(attribute.String("arbiter.project_id", projectID))
	if stepID != "" {
		span.SetAttributes(attribute.String("arbiter.step_id", stepID))
	}
	return ctx, span
}
