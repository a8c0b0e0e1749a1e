package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	keyTraceparent = "traceparent"
	keyTracestate  = "tracestate"
)

// TraceContextStrings serializes the span in ctx so it can be stored next to an
// outbox row and resumed by the publisher. Both values are empty without an active span.
func TraceContextStrings(ctx context.Context) (traceparent string, tracestate string) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier[keyTraceparent], carrier[keyTracestate]
}

// ContextWithTraceContext resumes a span context captured by TraceContextStrings.
func ContextWithTraceContext(ctx context.Context, traceparent string, tracestate string) context.Context {
	if traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{keyTraceparent: traceparent}
	if tracestate != "" {
		carrier[keyTracestate] = tracestate
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
