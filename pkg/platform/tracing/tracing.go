// Package tracing holds the span attribute keys and helpers shared by the
// policy gate and workflow engine. Spans go to the global otel provider,
// which is a no-op unless the process installs one.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "regulus"

// Span attribute keys.
const (
	AttrActorID      = attribute.Key("regulus.actor.id")
	AttrActorRole    = attribute.Key("regulus.actor.role")
	AttrResourceType = attribute.Key("regulus.resource.type")
	AttrAction       = attribute.Key("regulus.access.action")
	AttrDecision     = attribute.Key("regulus.policy.decision")
	AttrWorkflowID   = attribute.Key("regulus.workflow.id")
	AttrWorkflowType = attribute.Key("regulus.workflow.type")
	AttrStep         = attribute.Key("regulus.workflow.step")
	AttrStepIndex    = attribute.Key("regulus.workflow.step_index")
)

// Start opens a span on the package tracer.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Fail marks span as failed with err.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent records a named event on the span in ctx.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
