package adapters

import (
	"context"
	"fmt"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OtelTracer implements the Tracer interface on an OpenTelemetry tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer wraps tracer, usually provider.Tracer("ai-counselor").
func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

func (t *OtelTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Event adds an event to the span in ctx; without a recording span it is dropped.
func (t *OtelTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

func toAttributes(attrs map[string]any) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, val))
		case int:
			kvs = append(kvs, attribute.Int(k, val))
		case int64:
			kvs = append(kvs, attribute.Int64(k, val))
		case bool:
			kvs = append(kvs, attribute.Bool(k, val))
		case float64:
			kvs = append(kvs, attribute.Float64(k, val))
		case error:
			kvs = append(kvs, attribute.String(k, val.Error()))
		default:
			kvs = append(kvs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return kvs
}

// MultiTracer fans spans and events out to several tracers.
type MultiTracer []ports.Tracer

func (m MultiTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	finishers := make([]func(error), 0, len(m))
	for _, t := range m {
		var fin func(error)
		ctx, fin = t.StartSpan(ctx, name, attrs)
		finishers = append(finishers, fin)
	}
	return ctx, func(err error) {
		for i := len(finishers) - 1; i >= 0; i-- {
			finishers[i](err)
		}
	}
}

func (m MultiTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	for _, t := range m {
		t.Event(ctx, name, attrs)
	}
}

var (
	_ ports.Tracer = (*OtelTracer)(nil)
	_ ports.Tracer = MultiTracer(nil)
)
