package configplane

import (
	"testing"
	"time"

	"github.com/aperturestack/guardrail/policy"
)

func TestIntCodec(t *testing.T) {
	c := IntCodec()

	v, err := c.Parse(" 42 ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v != 42 {
		t.Fatalf("Parse() = %d, want 42", v)
	}
	if got := c.Format(v); got != "42" {
		t.Fatalf("Format() = %q, want %q", got, "42")
	}

	if _, err := c.Parse("not-an-int"); err == nil {
		t.Fatalf("Parse() error = nil, want error")
	}
}

func TestFloatCodec(t *testing.T) {
	c := FloatCodec()

	v, err := c.Parse("3.5")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v != 3.5 {
		t.Fatalf("Parse() = %v, want 3.5", v)
	}
	if got := c.Format(v); got != "3.5" {
		t.Fatalf("Format() = %q, want %q", got, "3.5")
	}

	if _, err := c.Parse("not-a-number"); err == nil {
		t.Fatalf("Parse() error = nil, want error")
	}
}

func TestBoolCodec(t *testing.T) {
	c := BoolCodec()

	v, err := c.Parse("true")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v != true {
		t.Fatalf("Parse() = %v, want true", v)
	}
	if got := c.Format(v); got != "true" {
		t.Fatalf("Format() = %q, want %q", got, "true")
	}

	if _, err := c.Parse("maybe"); err == nil {
		t.Fatalf("Parse() error = nil, want error")
	}
}

func TestStringCodec(t *testing.T) {
	c := StringCodec()

	v, err := c.Parse("hello world")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v != "hello world" {
		t.Fatalf("Parse() = %q, want %q", v, "hello world")
	}
	if got := c.Format(v); got != "hello world" {
		t.Fatalf("Format() = %q, want %q", got, "hello world")
	}
}

func TestDurationCodec_BareIntegerIsMilliseconds(t *testing.T) {
	c := DurationCodec()

	v, err := c.Parse("250")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v != 250*time.Millisecond {
		t.Fatalf("Parse() = %v, want 250ms", v)
	}
}

func TestDurationCodec_GoDurationSyntax(t *testing.T) {
	c := DurationCodec()

	v, err := c.Parse("2s")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v != 2*time.Second {
		t.Fatalf("Parse() = %v, want 2s", v)
	}
	if got := c.Format(v); got != "2s" {
		t.Fatalf("Format() = %q, want %q", got, "2s")
	}
}

func TestDurationCodec_InvalidValue(t *testing.T) {
	c := DurationCodec()

	if _, err := c.Parse("not-a-duration"); err == nil {
		t.Fatalf("Parse() error = nil, want error")
	}
}

func TestBackoffStrategyCodec(t *testing.T) {
	c := BackoffStrategyCodec()

	tests := []struct {
		in   string
		want policy.BackoffStrategy
	}{
		{"constant", policy.BackoffConstant},
		{"linear", policy.BackoffLinear},
		{"exponential", policy.BackoffExponential},
		{"EXPONENTIAL", policy.BackoffExponential},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := c.Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if v != tt.want {
				t.Fatalf("Parse(%q) = %v, want %v", tt.in, v, tt.want)
			}
			if got := c.Format(v); got != tt.want.String() {
				t.Fatalf("Format() = %q, want %q", got, tt.want.String())
			}
		})
	}

	if _, err := c.Parse("fibonacci"); err == nil {
		t.Fatalf("Parse(%q) error = nil, want error", "fibonacci")
	}
}

func TestJitterStrategyCodec(t *testing.T) {
	c := JitterStrategyCodec()

	tests := []struct {
		in   string
		want policy.JitterStrategy
	}{
		{"none", policy.JitterNone},
		{"full", policy.JitterFull},
		{"equal", policy.JitterEqual},
		{"decorrelated", policy.JitterDecorrelated},
		{"Full", policy.JitterFull},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := c.Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if v != tt.want {
				t.Fatalf("Parse(%q) = %v, want %v", tt.in, v, tt.want)
			}
			if got := c.Format(v); got != tt.want.String() {
				t.Fatalf("Format() = %q, want %q", got, tt.want.String())
			}
		})
	}

	if _, err := c.Parse("random"); err == nil {
		t.Fatalf("Parse(%q) error = nil, want error", "random")
	}
}
