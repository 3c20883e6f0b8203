// Package telemetry provides the observability surface every resilience
// policy and the live-configuration control plane report into: a
// lightweight per-event Sink for policy-level signals (retry attempts,
// circuit transitions, admission rejections, command audit entries), and
// a heavier Provider wrapping OpenTelemetry tracing/metrics plus a
// structured logger for process-level wiring.
package telemetry
