package policy

import (
	"time"

	"github.com/aperturestack/guardrail/resolvable"
)

// defaultIntResolvable substitutes def when r is an unset literal (a
// literal Resolvable holding the zero value or below). A producer
// Resolvable is never defaulted: the caller has deliberately opted into
// dynamic behavior, including one that legitimately yields 0.
func defaultIntResolvable(r resolvable.Resolvable[int], def int) resolvable.Resolvable[int] {
	if !r.IsFunc() && r.Resolve() <= 0 {
		return resolvable.Of(def)
	}
	return r
}

// defaultDurationResolvable is defaultIntResolvable for time.Duration.
func defaultDurationResolvable(r resolvable.Resolvable[time.Duration], def time.Duration) resolvable.Resolvable[time.Duration] {
	if !r.IsFunc() && r.Resolve() <= 0 {
		return resolvable.Of(def)
	}
	return r
}

// defaultFloatResolvable is defaultIntResolvable for float64.
func defaultFloatResolvable(r resolvable.Resolvable[float64], def float64) resolvable.Resolvable[float64] {
	if !r.IsFunc() && r.Resolve() <= 0 {
		return resolvable.Of(def)
	}
	return r
}
