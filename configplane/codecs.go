package configplane

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aperturestack/guardrail/policy"
)

// IntCodec parses/formats a plain base-10 integer.
func IntCodec() Codec[int] {
	return Codec[int]{
		Parse: func(s string) (int, error) {
			v, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return 0, fmt.Errorf("not an integer: %w", err)
			}
			return v, nil
		},
		Format: func(v int) string { return strconv.Itoa(v) },
	}
}

// FloatCodec parses/formats a 64-bit float.
func FloatCodec() Codec[float64] {
	return Codec[float64]{
		Parse: func(s string) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return 0, fmt.Errorf("not a number: %w", err)
			}
			return v, nil
		},
		Format: func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
	}
}

// BoolCodec parses/formats a boolean ("true"/"false"/"1"/"0"/...).
func BoolCodec() Codec[bool] {
	return Codec[bool]{
		Parse: func(s string) (bool, error) {
			v, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return false, fmt.Errorf("not a boolean: %w", err)
			}
			return v, nil
		},
		Format: func(v bool) string { return strconv.FormatBool(v) },
	}
}

// StringCodec is the identity codec.
func StringCodec() Codec[string] {
	return Codec[string]{
		Parse:  func(s string) (string, error) { return s, nil },
		Format: func(v string) string { return v },
	}
}

// DurationCodec parses/formats a time.Duration using Go duration syntax
// ("250ms", "2s"), falling back to plain milliseconds for a bare integer.
func DurationCodec() Codec[time.Duration] {
	return Codec[time.Duration]{
		Parse: func(s string) (time.Duration, error) {
			s = strings.TrimSpace(s)
			if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
				return time.Duration(ms) * time.Millisecond, nil
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return 0, fmt.Errorf("not a duration: %w", err)
			}
			return d, nil
		},
		Format: func(v time.Duration) string { return v.String() },
	}
}

// BackoffStrategyCodec parses/formats policy.BackoffStrategy by name
// ("constant", "linear", "exponential").
func BackoffStrategyCodec() Codec[policy.BackoffStrategy] {
	return Codec[policy.BackoffStrategy]{
		Parse: func(s string) (policy.BackoffStrategy, error) {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "constant":
				return policy.BackoffConstant, nil
			case "linear":
				return policy.BackoffLinear, nil
			case "exponential":
				return policy.BackoffExponential, nil
			default:
				return 0, fmt.Errorf("unknown backoff strategy %q", s)
			}
		},
		Format: func(v policy.BackoffStrategy) string { return v.String() },
	}
}

// JitterStrategyCodec parses/formats policy.JitterStrategy by name
// ("none", "full", "equal", "decorrelated").
func JitterStrategyCodec() Codec[policy.JitterStrategy] {
	return Codec[policy.JitterStrategy]{
		Parse: func(s string) (policy.JitterStrategy, error) {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "none":
				return policy.JitterNone, nil
			case "full":
				return policy.JitterFull, nil
			case "equal":
				return policy.JitterEqual, nil
			case "decorrelated":
				return policy.JitterDecorrelated, nil
			default:
				return 0, fmt.Errorf("unknown jitter strategy %q", s)
			}
		},
		Format: func(v policy.JitterStrategy) string { return v.String() },
	}
}
