package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the process-memory health checker.
// Thresholds are fractions of MaxAlloc in (0, 1).
type MemoryCheckerConfig struct {
	// WarningThreshold is the allocation fraction above which the check
	// reports Degraded. Default: 0.8.
	WarningThreshold float64

	// CriticalThreshold is the allocation fraction above which the check
	// reports Unhealthy. Default: 0.95.
	CriticalThreshold float64

	// MaxAlloc is the allocation budget in bytes the thresholds apply
	// against. Zero means use the runtime's reported Sys size.
	MaxAlloc uint64
}

// MemoryChecker checks process memory usage, registered alongside
// CircuitBreakerChecker/BulkheadChecker/RateLimiterChecker in an
// Aggregator so an operator sees host pressure next to policy state.
// A bulkhead reporting Degraded due to host-level memory pressure
// rather than genuine downstream saturation is a distinction this
// sibling check exists to surface.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a MemoryChecker, clamping out-of-range
// thresholds back to their defaults.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config}
}

// Name returns "process_memory".
func (m *MemoryChecker) Name() string {
	return "process_memory"
}

// Check reads runtime memory statistics and grades the allocation
// fraction against the configured thresholds.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}

	details := map[string]any{
		"alloc_bytes": stats.Alloc,
		"heap_alloc":  stats.HeapAlloc,
		"heap_in_use": stats.HeapInuse,
		"max_alloc":   maxAlloc,
		"num_gc":      stats.NumGC,
		"goroutines":  runtime.NumGoroutine(),
	}

	if maxAlloc == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	usage := float64(stats.Alloc) / float64(maxAlloc)
	details["usage_percent"] = usage * 100

	switch {
	case usage >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", usage*100), ErrCheckFailed).WithDetails(details)
	case usage >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", usage*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", usage*100)).WithDetails(details)
	}
}

// ForceGC triggers a garbage collection so a subsequent Check reads
// settled allocation numbers.
func (m *MemoryChecker) ForceGC() {
	runtime.GC()
}
