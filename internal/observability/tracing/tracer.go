// Package tracing provides OpenTelemetry tracing integration for HTTP
// handlers and pipeline stages.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the jobradar application.
var tracer = otel.Tracer("jobradar")

// GetTracer returns the global tracer for creating spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "collect-source")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
