package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNoopSink_DoesNotPanic(t *testing.T) {
	var s NoopSink
	s.Emit(context.Background(), Event{Type: "retry.failure"})
}

func TestMultiSink_FansOutToAllMembers(t *testing.T) {
	var a, b recordingSink
	m := NewMultiSink(&a, &b)
	m.Emit(context.Background(), Event{Type: "circuit.opened"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("got a=%d b=%d events, want 1 each", len(a.events), len(b.events))
	}
}

func TestMultiSink_PanicInMemberDoesNotStopFanOut(t *testing.T) {
	var after recordingSink
	m := NewMultiSink(panicSink{}, &after)
	m.Emit(context.Background(), Event{Type: "bulkhead.rejected"})

	if len(after.events) != 1 {
		t.Fatalf("got %d events on sink after panicking member, want 1", len(after.events))
	}
}

func TestMultiSink_NilMembersSkipped(t *testing.T) {
	var a recordingSink
	m := NewMultiSink(nil, &a, nil)
	m.Emit(context.Background(), Event{Type: "retry.success"})

	if len(a.events) != 1 {
		t.Fatalf("got %d events, want 1", len(a.events))
	}
}

func TestStructuredSink_WritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewStructuredSinkWithWriter("info", &buf)
	s.Emit(context.Background(), Event{Type: "config.command", Meta: map[string]any{"path": "retry.delay"}})

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v (%s)", err, buf.String())
	}
	if decoded["event"] != "config.command" {
		t.Errorf("event = %v, want config.command", decoded["event"])
	}
	if decoded["path"] != "retry.delay" {
		t.Errorf("path = %v, want retry.delay", decoded["path"])
	}
}

func TestStructuredSink_RedactsSensitiveMeta(t *testing.T) {
	var buf bytes.Buffer
	s := NewStructuredSinkWithWriter("info", &buf)
	s.Emit(context.Background(), Event{Type: "config.command", Meta: map[string]any{"secret": "hunter2"}})

	if strings.Contains(buf.String(), "hunter2") {
		t.Errorf("output contains unredacted secret: %s", buf.String())
	}
}

func TestStructuredSink_DropsEventsBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	s := NewStructuredSinkWithWriter("error", &buf)
	s.Emit(context.Background(), Event{Type: "retry.scheduled"})

	if buf.Len() != 0 {
		t.Errorf("expected no output below configured level, got %q", buf.String())
	}
}

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(ctx context.Context, ev Event) {
	r.events = append(r.events, ev)
}

type panicSink struct{}

func (panicSink) Emit(ctx context.Context, ev Event) {
	panic("boom")
}
