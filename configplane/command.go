package configplane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aperturestack/guardrail/telemetry"
)

// CommandOut is the wire output envelope: data is present iff ok, error is
// present iff !ok.
type CommandOut struct {
	ID    string     `json:"id"`
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *WireError `json:"error,omitempty"`
}

// WireError is the wire shape of a configplane.Error.
type WireError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

type rawEnvelope struct {
	ID   string          `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args"`
	Auth string          `json:"auth"`
}

type readConfigArgs struct {
	Path string `json:"path"`
}

type writeConfigArgs struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

type listConfigArgs struct {
	Prefix string `json:"prefix,omitempty"`
}

// Router decodes command envelopes, authorizes and dispatches them
// against a ConfigRegistry, and audits every attempt and its result.
type Router struct {
	registry *ConfigRegistry
	auth     AuthProvider
	sink     telemetry.Sink
}

// NewRouter builds a Router. A nil auth defaults to AllowAllAuthProvider;
// a nil sink defaults to telemetry.NoopSink.
func NewRouter(registry *ConfigRegistry, auth AuthProvider, sink telemetry.Sink) *Router {
	if auth == nil {
		auth = AllowAllAuthProvider{}
	}
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &Router{registry: registry, auth: auth, sink: sink}
}

// ExecuteLine runs the full command pipeline over one JSONL line and
// returns the marshaled output envelope.
func (r *Router) ExecuteLine(ctx context.Context, line []byte) []byte {
	out := r.Execute(ctx, line)
	b, err := json.Marshal(out)
	if err != nil {
		// Marshaling our own CommandOut should never fail; fall back to a
		// minimal envelope rather than returning an empty line.
		b, _ = json.Marshal(errorOut(out.ID, newError(CodeInternalError, "failed to encode result: %v", err)))
	}
	return b
}

// Execute runs the full command pipeline: parse, audit attempt,
// authorize, validate+dispatch, audit result.
func (r *Router) Execute(ctx context.Context, line []byte) CommandOut {
	raw, parseErr := parseEnvelope(line)

	id := "unknown"
	cmd := ""
	if raw != nil {
		if raw.ID != "" {
			id = raw.ID
		}
		cmd = raw.Cmd
	}

	if auditErr := r.audit(ctx, "attempt", id, cmd, nil); auditErr != nil {
		return errorOut(id, newError(CodeInternalError, "audit sink: %v", auditErr))
	}

	var out CommandOut
	if parseErr != nil {
		out = errorOut(id, parseErr)
	} else {
		out = r.process(ctx, id, raw)
	}

	ok := out.OK
	if auditErr := r.audit(ctx, "result", id, cmd, &ok); auditErr != nil {
		return errorOut(id, newError(CodeInternalError, "audit sink: %v", auditErr))
	}
	return out
}

func (r *Router) audit(ctx context.Context, phase, id, cmd string, ok *bool) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("audit sink panicked: %v", rec)
		}
	}()

	meta := map[string]any{"id": id}
	if cmd != "" {
		meta["cmd"] = cmd
	}
	if ok != nil {
		meta["ok"] = *ok
	}
	r.sink.Emit(ctx, telemetry.Event{Type: "configplane." + phase, Meta: meta})
	return nil
}

func (r *Router) process(ctx context.Context, id string, raw *rawEnvelope) CommandOut {
	ok, _, authErr := r.auth.Authorize(ctx, raw.Auth)
	if authErr != nil {
		return errorOut(id, authErr)
	}
	if !ok {
		return errorOut(id, newError(CodeAuthDenied, "not authorized"))
	}

	switch raw.Cmd {
	case "read_config":
		return r.readConfig(id, raw.Args)
	case "write_config":
		return r.writeConfig(id, raw.Args)
	case "list_config":
		return r.listConfig(id, raw.Args)
	default:
		return errorOut(id, newError(CodeInvalidCommand, "unknown command %q", raw.Cmd))
	}
}

func (r *Router) readConfig(id string, rawArgs json.RawMessage) CommandOut {
	var args readConfigArgs
	if err := strictDecode(rawArgs, &args); err != nil {
		return errorOut(id, newError(CodeInvalidCommand, "read_config args: %v", err))
	}
	if args.Path == "" {
		return errorOut(id, newError(CodeInvalidCommand, "read_config requires a non-empty path"))
	}

	snap, err := r.registry.Read(args.Path)
	if err != nil {
		return errorOut(id, err)
	}
	return okOut(id, snapshotData(snap))
}

func (r *Router) writeConfig(id string, rawArgs json.RawMessage) CommandOut {
	var args writeConfigArgs
	if err := strictDecode(rawArgs, &args); err != nil {
		return errorOut(id, newError(CodeInvalidCommand, "write_config args: %v", err))
	}
	if args.Path == "" || args.Value == "" {
		return errorOut(id, newError(CodeInvalidCommand, "write_config requires a non-empty path and value"))
	}

	snap, err := r.registry.Write(args.Path, args.Value)
	if err != nil {
		return errorOut(id, err)
	}
	return okOut(id, snapshotData(snap))
}

func (r *Router) listConfig(id string, rawArgs json.RawMessage) CommandOut {
	var args listConfigArgs
	if len(rawArgs) > 0 {
		if err := strictDecode(rawArgs, &args); err != nil {
			return errorOut(id, newError(CodeInvalidCommand, "list_config args: %v", err))
		}
	}

	keys, err := r.registry.Keys(args.Prefix)
	if err != nil {
		return errorOut(id, err)
	}
	return okOut(id, map[string]any{"keys": keys})
}

func parseEnvelope(line []byte) (*rawEnvelope, *Error) {
	var raw rawEnvelope
	if err := strictDecode(line, &raw); err != nil {
		return nil, newError(CodeInvalidCommand, "malformed command envelope: %v", err)
	}
	return &raw, nil
}

func strictDecode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func snapshotData(s Snapshot) map[string]any {
	return map[string]any{
		"path":       s.Path,
		"value":      s.Value,
		"formatted":  s.Formatted,
		"version":    s.Version,
		"updated_at": s.UpdatedAt,
	}
}

func okOut(id string, data any) CommandOut {
	return CommandOut{ID: id, OK: true, Data: data}
}

func errorOut(id string, err error) CommandOut {
	var cpErr *Error
	if errors.As(err, &cpErr) {
		return CommandOut{ID: id, OK: false, Error: &WireError{Code: cpErr.Code, Message: cpErr.Message, Details: cpErr.Details}}
	}
	return CommandOut{ID: id, OK: false, Error: &WireError{Code: CodeInternalError, Message: err.Error()}}
}
