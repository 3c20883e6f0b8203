package telemetry

import "context"

// MultiSink fans an Event out to every member Sink in order. A panic in
// one member does not prevent the rest from receiving the Event: Emit
// recovers per-member so a misbehaving Sink cannot take down a policy's
// hot path.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one. Nil members are skipped.
func NewMultiSink(sinks ...Sink) MultiSink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return MultiSink{sinks: filtered}
}

// Emit forwards ev to every member Sink.
func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m.sinks {
		emitSafely(ctx, s, ev)
	}
}

func emitSafely(ctx context.Context, s Sink, ev Event) {
	defer func() { _ = recover() }()
	s.Emit(ctx, ev)
}
