package configplane

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aperturestack/guardrail/clock"
	"github.com/aperturestack/guardrail/resolvable"
)

// Codec parses a wire string into T and formats T back to a wire string.
// Both fields are required; Register/EnsureRegister reject a Codec
// missing either.
type Codec[T any] struct {
	Parse  func(s string) (T, error)
	Format func(v T) string
}

// Adaptive is a versioned, timestamped cell holding a single value. Its
// version strictly increases on every write (the initial register counts
// as version 1); reads take an atomic snapshot.
type Adaptive[T any] struct {
	mu        sync.RWMutex
	value     T
	version   uint64
	updatedAt int64
}

func newAdaptive[T any](initial T, now int64) *Adaptive[T] {
	return &Adaptive[T]{value: initial, version: 1, updatedAt: now}
}

// Get returns the current value.
func (a *Adaptive[T]) Get() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Version returns the current version.
func (a *Adaptive[T]) Version() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

// UpdatedAt returns the timestamp (clock.Now() units) of the last write.
func (a *Adaptive[T]) UpdatedAt() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.updatedAt
}

// Resolver returns a resolvable.Resolvable that reads this Adaptive live:
// every Resolve call observes whatever value is current at that instant.
func (a *Adaptive[T]) Resolver() resolvable.Resolvable[T] {
	return resolvable.OfFunc(a.Get)
}

func (a *Adaptive[T]) snapshot() (T, uint64, int64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value, a.version, a.updatedAt
}

func (a *Adaptive[T]) set(v T, now int64) (uint64, int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = v
	a.version++
	a.updatedAt = now
	return a.version, a.updatedAt
}

// Snapshot is a registry entry's state at one point in time.
type Snapshot struct {
	Path      string
	Value     any
	Formatted string
	Version   uint64
	UpdatedAt int64
}

// entry type-erases Adaptive[T]/Codec[T] so heterogeneous entries can
// share one registry map.
type entry interface {
	snapshot() Snapshot
	write(value string, now int64) (Snapshot, error)
}

type typedEntry[T any] struct {
	path     string
	adaptive *Adaptive[T]
	codec    Codec[T]
}

func (e *typedEntry[T]) snapshot() Snapshot {
	v, ver, updatedAt := e.adaptive.snapshot()
	return Snapshot{Path: e.path, Value: v, Formatted: e.codec.Format(v), Version: ver, UpdatedAt: updatedAt}
}

func (e *typedEntry[T]) write(value string, now int64) (Snapshot, error) {
	parsed, err := e.codec.Parse(value)
	if err != nil {
		return Snapshot{}, newError(CodeValidationFailed, "parse %q for %q: %v", value, e.path, err)
	}
	ver, updatedAt := e.adaptive.set(parsed, now)
	return Snapshot{Path: e.path, Value: parsed, Formatted: e.codec.Format(parsed), Version: ver, UpdatedAt: updatedAt}, nil
}

// ConfigRegistry maps validated paths to typed Adaptive cells. Paths are
// unique: Register rejects re-registration.
type ConfigRegistry struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   clock.Clock
}

// NewConfigRegistry creates an empty ConfigRegistry. Entry timestamps are
// measured against c.
func NewConfigRegistry(c clock.Clock) *ConfigRegistry {
	if c == nil {
		c = clock.Default
	}
	return &ConfigRegistry{entries: make(map[string]entry), clock: c}
}

// Register validates path, rejects a codec missing Parse/Format, and
// fails *Error{Code: CodeAlreadyRegistered} on a duplicate path.
func Register[T any](r *ConfigRegistry, path string, initial T, codec Codec[T]) (*Adaptive[T], error) {
	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	if codec.Parse == nil || codec.Format == nil {
		return nil, newError(CodeInvalidCodec, "codec for %q must have both Parse and Format", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[path]; exists {
		return nil, newError(CodeAlreadyRegistered, "path %q is already registered", path)
	}

	adaptive := newAdaptive(initial, r.clock.Now())
	r.entries[path] = &typedEntry[T]{path: path, adaptive: adaptive, codec: codec}
	return adaptive, nil
}

// EnsureRegister registers path with def/codec if absent, or returns the
// existing Adaptive[T] if path is already registered with that same type.
// A path registered with a different T fails *Error{Code:
// CodeInvalidAdaptive}.
func EnsureRegister[T any](r *ConfigRegistry, path string, def T, codec Codec[T]) (*Adaptive[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[path]; ok {
		te, ok := existing.(*typedEntry[T])
		if !ok {
			return nil, newError(CodeInvalidAdaptive, "path %q is registered with an incompatible type", path)
		}
		return te.adaptive, nil
	}

	if err := validatePath(path, false); err != nil {
		return nil, err
	}
	if codec.Parse == nil || codec.Format == nil {
		return nil, newError(CodeInvalidCodec, "codec for %q must have both Parse and Format", path)
	}

	adaptive := newAdaptive(def, r.clock.Now())
	r.entries[path] = &typedEntry[T]{path: path, adaptive: adaptive, codec: codec}
	return adaptive, nil
}

// Read returns a snapshot of the entry at path.
func (r *ConfigRegistry) Read(path string) (Snapshot, error) {
	if err := validatePath(path, false); err != nil {
		return Snapshot{}, err
	}

	r.mu.RLock()
	e, ok := r.entries[path]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, newError(CodeNotFound, "no config registered at %q", path)
	}
	return e.snapshot(), nil
}

// Write parses value against path's codec and, on success, stores the
// parsed value and returns the post-write snapshot. On parse failure the
// stored value is left unchanged and a *Error{Code: CodeValidationFailed}
// is returned.
func (r *ConfigRegistry) Write(path, value string) (Snapshot, error) {
	if err := validatePath(path, false); err != nil {
		return Snapshot{}, err
	}

	r.mu.RLock()
	e, ok := r.entries[path]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, newError(CodeNotFound, "no config registered at %q", path)
	}
	return e.write(value, r.clock.Now())
}

// Keys returns the sorted paths matching prefix. An empty prefix matches
// everything; a prefix without '*' matches itself and any path starting
// with "prefix/"; a prefix containing '*' is a glob where '*' matches any
// substring.
func (r *ConfigRegistry) Keys(prefix string) ([]string, error) {
	isGlob := strings.Contains(prefix, "*")
	if prefix != "" {
		if err := validatePath(prefix, isGlob); err != nil {
			return nil, err
		}
	}

	var matches func(path string) bool
	if prefix == "" {
		matches = func(string) bool { return true }
	} else if isGlob {
		re := globToRegexp(prefix)
		matches = re.MatchString
	} else {
		matches = func(path string) bool {
			return path == prefix || strings.HasPrefix(path, prefix+"/")
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for p := range r.entries {
		if matches(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func globToRegexp(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	var b strings.Builder
	b.WriteString("^")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(p))
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// validatePath rejects a leading or trailing slash, empty segments, '.',
// '..', backslashes, and (unless allowGlob) '*'.
func validatePath(path string, allowGlob bool) error {
	if path == "" {
		return newError(CodeInvalidPath, "path must not be empty")
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return newError(CodeInvalidPath, "path %q must not have a leading or trailing slash", path)
	}
	if strings.Contains(path, "\\") {
		return newError(CodeInvalidPath, "path %q must not contain a backslash", path)
	}
	for _, seg := range strings.Split(path, "/") {
		switch {
		case seg == "":
			return newError(CodeInvalidPath, "path %q must not contain an empty segment", path)
		case seg == "." || seg == "..":
			return newError(CodeInvalidPath, "path %q must not contain %q", path, seg)
		case !allowGlob && strings.Contains(seg, "*"):
			return newError(CodeInvalidPath, "path %q must not contain '*'", path)
		}
	}
	return nil
}
