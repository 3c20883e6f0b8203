package configplane

import (
	"context"

	"github.com/aperturestack/guardrail/secret"
)

// SecretCodec wraps inner so that a write whose wire value is a
// "secretref:<provider>:<ref>" (or contains "${ENV_VAR}" references) is
// resolved via resolver before inner.Parse ever sees it. The registry
// itself never knows a value came from a secret store: it stores and
// serves whatever T inner produces, exactly as it would for a literal.
//
// Resolution happens once, at write time: ConfigRegistry entries are
// synchronous value cells with no hook for a per-read network call, so a
// secretref is not re-resolved on every subsequent read. An operator who
// needs a rotated secret picked up live should write_config again once
// the underlying secret changes.
func SecretCodec[T any](path string, inner Codec[T], resolver *secret.Resolver) Codec[T] {
	return Codec[T]{
		Parse: func(s string) (T, error) {
			resolved, err := resolver.ResolvePath(context.Background(), path, s)
			if err != nil {
				var zero T
				return zero, err
			}
			return inner.Parse(resolved)
		},
		Format: inner.Format,
	}
}
