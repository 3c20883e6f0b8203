// Package configplane implements the live-configuration control plane: a
// typed ConfigRegistry of Adaptive values backing live-bound policy
// parameters, a JSONL command envelope and router that let operators read
// and write those values at runtime, and a LivePolicyPlan builder that
// composes policy.Policy values whose parameters resolve against the
// registry.
package configplane

import "fmt"

// ErrorCode is one of the wire error codes from the command protocol.
type ErrorCode string

const (
	CodeInvalidPath       ErrorCode = "INVALID_PATH"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeAlreadyRegistered ErrorCode = "ALREADY_REGISTERED"
	CodeInvalidCommand    ErrorCode = "INVALID_COMMAND"
	CodeInvalidCodec      ErrorCode = "INVALID_CODEC"
	CodeInvalidAdaptive   ErrorCode = "INVALID_ADAPTIVE"
	CodeAuthDenied        ErrorCode = "AUTH_DENIED"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// Error is a control-plane failure with a stable wire code, a
// human-readable message, and optional structured details. No internal
// state (stack traces, Go error chains) crosses the wire beyond this.
type Error struct {
	Code    ErrorCode
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("configplane: [%s] %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
