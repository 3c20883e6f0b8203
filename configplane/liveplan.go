package configplane

import (
	"strings"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/policy"
	"github.com/aperturestack/guardrail/telemetry"
)

// LiveKind is the sum-type discriminant for a LiveNode: which policy the
// node builds and, transitively, which fields from the live policy field
// catalogue it ensure-registers.
type LiveKind int

const (
	LiveRetry LiveKind = iota
	LiveBulkhead
	LiveCircuitBreaker
	LiveTimeout
	LiveStatic
)

func (k LiveKind) String() string {
	switch k {
	case LiveRetry:
		return "retry"
	case LiveBulkhead:
		return "bulkhead"
	case LiveCircuitBreaker:
		return "circuitBreaker"
	case LiveTimeout:
		return "timeout"
	case LiveStatic:
		return "static"
	default:
		return "unknown"
	}
}

// LiveNode is one entry of a LivePolicyPlan: either a parameterized live
// policy binding (Kind != LiveStatic, Binding required) whose fields are
// ensure-registered under basePath/Binding/<field>, or a pre-built static
// policy (Kind == LiveStatic, Static required) that is spliced into the
// composition unchanged.
//
// Defaults overrides the live policy field catalogue's wire-string
// default for a field; a field the catalogue marks required (bulkhead
// limit, circuit breaker threshold/duration, timeout ms) must be present
// here or RegisterLivePolicy fails with CodeValidationFailed.
type LiveNode[T any] struct {
	Kind     LiveKind
	Binding  string
	Defaults map[string]string
	Static   policy.Policy[T]
}

// LivePolicyPlanOptions supplies the Clock and Sink every live-bound
// policy node in the plan is built with. Both default the same way the
// underlying policy constructors do.
type LivePolicyPlanOptions struct {
	Clock clock.Clock
	Sink  telemetry.Sink
}

// RegisterLivePolicy implements ControlPlane.registerLivePolicy: it
// validates basePath and every binding name, ensure-registers each live
// node's catalogue fields under basePath/binding/<field>, builds each
// node's concrete policy from live resolvers reading those registrations,
// and composes the plan in declaration order via policy.Wrap, so the
// first node is outermost.
func RegisterLivePolicy[T any](registry *ConfigRegistry, basePath string, plan []LiveNode[T], opts LivePolicyPlanOptions) (policy.Policy[T], error) {
	if len(plan) == 0 {
		return nil, newError(CodeValidationFailed, "live policy plan must have at least one node")
	}
	if strings.Contains(basePath, "*") {
		return nil, newError(CodeInvalidPath, "basePath %q must not contain '*'", basePath)
	}
	if err := validatePath(basePath, false); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.Default
	}
	if opts.Sink == nil {
		opts.Sink = telemetry.NoopSink{}
	}

	seen := make(map[string]bool, len(plan))
	for _, node := range plan {
		if node.Kind == LiveStatic {
			if node.Static == nil {
				return nil, newError(CodeValidationFailed, "static live node must set Static")
			}
			continue
		}
		if err := validateBindingName(node.Binding); err != nil {
			return nil, err
		}
		if seen[node.Binding] {
			return nil, newError(CodeValidationFailed, "binding %q is declared more than once", node.Binding)
		}
		seen[node.Binding] = true
	}

	policies := make([]policy.Policy[T], len(plan))
	for i, node := range plan {
		built, err := buildLiveNode(registry, basePath, node, opts)
		if err != nil {
			return nil, err
		}
		policies[i] = built
	}

	composed := policies[len(policies)-1]
	for i := len(policies) - 2; i >= 0; i-- {
		composed = policy.Wrap(policies[i], composed)
	}
	return composed, nil
}

// validateBindingName requires a single path segment: non-empty, no
// slash, backslash, or glob character, and not "." or "..".
func validateBindingName(name string) error {
	if name == "" {
		return newError(CodeValidationFailed, "binding name must not be empty")
	}
	if strings.ContainsAny(name, "/\\*") {
		return newError(CodeValidationFailed, "binding name %q must be a single path segment", name)
	}
	if name == "." || name == ".." {
		return newError(CodeValidationFailed, "binding name must not be %q", name)
	}
	return nil
}

func buildLiveNode[T any](registry *ConfigRegistry, basePath string, node LiveNode[T], opts LivePolicyPlanOptions) (policy.Policy[T], error) {
	switch node.Kind {
	case LiveStatic:
		return node.Static, nil
	case LiveRetry:
		return buildLiveRetry[T](registry, nodePath(basePath, node.Binding), node.Defaults, opts)
	case LiveBulkhead:
		return buildLiveBulkhead[T](registry, nodePath(basePath, node.Binding), node.Defaults, opts)
	case LiveCircuitBreaker:
		return buildLiveCircuitBreaker[T](registry, nodePath(basePath, node.Binding), node.Defaults, opts)
	case LiveTimeout:
		return buildLiveTimeout[T](registry, nodePath(basePath, node.Binding), node.Defaults, opts)
	default:
		return nil, newError(CodeValidationFailed, "unknown live node kind %d for binding %q", node.Kind, node.Binding)
	}
}

func nodePath(basePath, binding string) string {
	return basePath + "/" + binding
}

// fieldDefault resolves field's initial wire value: the plan's override
// if present, else def. required fields have no catalogue default and
// fail if neither is supplied.
func fieldDefault(overrides map[string]string, field, def string, required bool) (string, error) {
	if v, ok := overrides[field]; ok {
		return v, nil
	}
	if required {
		return "", newError(CodeValidationFailed, "field %q is required and has no default", field)
	}
	return def, nil
}

func buildLiveRetry[T any](registry *ConfigRegistry, base string, overrides map[string]string, opts LivePolicyPlanOptions) (policy.Policy[T], error) {
	retries, err := ensureLiveField(registry, base, "retries", overrides, "3", false, IntCodec())
	if err != nil {
		return nil, err
	}
	delay, err := ensureLiveField(registry, base, "delay", overrides, "1000", false, DurationCodec())
	if err != nil {
		return nil, err
	}
	maxDelay, err := ensureLiveField(registry, base, "maxDelay", overrides, "30000", false, DurationCodec())
	if err != nil {
		return nil, err
	}
	backoff, err := ensureLiveField(registry, base, "backoff", overrides, "constant", false, BackoffStrategyCodec())
	if err != nil {
		return nil, err
	}
	jitter, err := ensureLiveField(registry, base, "jitter", overrides, "none", false, JitterStrategyCodec())
	if err != nil {
		return nil, err
	}

	return policy.NewRetry[T](policy.RetryConfig[T]{
		Retries:  retries.Resolver(),
		Delay:    delay.Resolver(),
		MaxDelay: maxDelay.Resolver(),
		Backoff:  backoff.Resolver(),
		Jitter:   jitter.Resolver(),
		Clock:    opts.Clock,
		Sink:     opts.Sink,
	}), nil
}

func buildLiveBulkhead[T any](registry *ConfigRegistry, base string, overrides map[string]string, opts LivePolicyPlanOptions) (policy.Policy[T], error) {
	limit, err := ensureLiveField(registry, base, "limit", overrides, "", true, IntCodec())
	if err != nil {
		return nil, err
	}
	queueLimit, err := ensureLiveField(registry, base, "queueLimit", overrides, "0", false, IntCodec())
	if err != nil {
		return nil, err
	}

	return policy.NewBulkhead[T](policy.BulkheadConfig[T]{
		Limit:      limit.Resolver(),
		QueueLimit: queueLimit.Resolver(),
		Sink:       opts.Sink,
	}), nil
}

func buildLiveCircuitBreaker[T any](registry *ConfigRegistry, base string, overrides map[string]string, opts LivePolicyPlanOptions) (policy.Policy[T], error) {
	threshold, err := ensureLiveField(registry, base, "threshold", overrides, "", true, IntCodec())
	if err != nil {
		return nil, err
	}
	duration, err := ensureLiveField(registry, base, "duration", overrides, "", true, DurationCodec())
	if err != nil {
		return nil, err
	}
	successThreshold, err := ensureLiveField(registry, base, "successThreshold", overrides, "1", false, IntCodec())
	if err != nil {
		return nil, err
	}

	return policy.NewCircuitBreaker[T](policy.CircuitBreakerConfig[T]{
		Threshold:        threshold.Resolver(),
		Duration:         duration.Resolver(),
		SuccessThreshold: successThreshold.Resolver(),
		Clock:            opts.Clock,
		Sink:             opts.Sink,
	}), nil
}

func buildLiveTimeout[T any](registry *ConfigRegistry, base string, overrides map[string]string, opts LivePolicyPlanOptions) (policy.Policy[T], error) {
	ms, err := ensureLiveField(registry, base, "ms", overrides, "", true, DurationCodec())
	if err != nil {
		return nil, err
	}

	return policy.NewTimeout[T](policy.TimeoutConfig[T]{
		Limit: ms.Resolver(),
		Clock: opts.Clock,
		Sink:  opts.Sink,
	}), nil
}

// ensureLiveField resolves field's initial wire value and ensure-registers
// it at base/field, reusing an existing registration of the same type if
// one is already present (letting two plans share a binding's fields).
func ensureLiveField[T any](registry *ConfigRegistry, base, field string, overrides map[string]string, def string, required bool, codec Codec[T]) (*Adaptive[T], error) {
	wire, err := fieldDefault(overrides, field, def, required)
	if err != nil {
		return nil, err
	}
	initial, err := codec.Parse(wire)
	if err != nil {
		return nil, newError(CodeValidationFailed, "default for %q/%q: %v", base, field, err)
	}
	return EnsureRegister[T](registry, base+"/"+field, initial, codec)
}
