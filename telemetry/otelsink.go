package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// standardCounterKeys are the Event.Metrics keys every policy and the
// control plane emit against, one named OTel instrument each. The set is
// fixed so instruments are created once at construction rather than
// minted dynamically per event.
var standardCounterKeys = []string{
	"retries", "failures", "successes", "circuitBreaks",
	"bulkheadRejections", "timeouts", "hedges", "rateLimitRejections",
}

// OtelSink records each Event's Metrics as OpenTelemetry counter
// increments: one Int64Counter per standard counter key, tagged with an
// "event" attribute for the dotted Event Type. A Metrics key outside the
// standard set is dropped rather than minting a new instrument at
// runtime.
type OtelSink struct {
	counters map[string]metric.Int64Counter
}

// NewOtelSink creates an OtelSink backed by meter, pre-registering one
// counter per standard key.
func NewOtelSink(meter metric.Meter) (*OtelSink, error) {
	counters := make(map[string]metric.Int64Counter, len(standardCounterKeys))
	for _, key := range standardCounterKeys {
		counter, err := meter.Int64Counter(
			"guardrail.policy."+key,
			metric.WithDescription("Resilience policy counter: "+key),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return nil, err
		}
		counters[key] = counter
	}
	return &OtelSink{counters: counters}, nil
}

// Emit increments each standard-key counter named in ev.Metrics by its
// value, attributed by event type.
func (s *OtelSink) Emit(ctx context.Context, ev Event) {
	for name, n := range ev.Metrics {
		counter, ok := s.counters[name]
		if !ok {
			continue
		}
		counter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("event", ev.Type)))
	}
}

// TracingSink attaches each Event as a span event on the span present in
// ctx, if any. It is inexpensive to call with no active span: AddEvent on
// a noop span is a no-op.
type TracingSink struct {
	tracer trace.Tracer
}

// NewTracingSink creates a TracingSink. tracer is kept for symmetry with
// the other sink constructors and reserved for future root-span creation;
// Emit currently attaches to whatever span is already in ctx.
func NewTracingSink(tracer trace.Tracer) TracingSink {
	return TracingSink{tracer: tracer}
}

// Emit records ev as a span event with its Meta as attributes.
func (s TracingSink) Emit(ctx context.Context, ev Event) {
	span := trace.SpanFromContext(ctx)
	if len(ev.Meta) == 0 {
		span.AddEvent(ev.Type)
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(ev.Meta))
	for k, v := range ev.Meta {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	span.AddEvent(ev.Type, trace.WithAttributes(attrs...))
}
