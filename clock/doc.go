// Package clock abstracts monotonic time and cancellable sleeping for the
// policy package. Production code uses System; tests use TestClock to
// drive retry backoff, circuit-breaker timeouts, hedge delays, and
// rate-limit refills deterministically without real wall-clock waits.
//
// Contract: Now returns milliseconds since an arbitrary but fixed epoch
// for the Clock's lifetime; Sleep blocks the calling goroutine until that
// many milliseconds have elapsed (real or virtual) or ctx is done,
// whichever comes first.
package clock
