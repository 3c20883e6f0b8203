package auth

import "time"

// AuthMethod indicates how an operator's identity was established before
// it reached the control plane's AuthProvider.
type AuthMethod string

const (
	AuthMethodNone      AuthMethod = "none"
	AuthMethodOpaque    AuthMethod = "opaque"
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity represents an authenticated control-plane operator: the
// principal behind a read_config/write_config/list_config command.
type Identity struct {
	// Principal is the unique identifier (e.g., operator username, email).
	Principal string

	// TenantID is the tenant this identity belongs to (multi-tenancy).
	TenantID string

	// Roles are the roles assigned to this identity.
	Roles []string

	// Permissions are explicit permissions granted to this identity,
	// checked alongside role-derived ones.
	Permissions []string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims contains the raw claims from the token, if any.
	Claims map[string]any

	// ExpiresAt is when this identity expires. Zero means no expiry.
	ExpiresAt time.Time

	// IssuedAt is when this identity was created.
	IssuedAt time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the identity carries the explicit
// permission perm.
func (id *Identity) HasPermission(perm string) bool {
	for _, p := range id.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// IsExpired reports whether the identity's expiry has passed.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// IsAnonymous reports whether this identity names no operator.
func (id *Identity) IsAnonymous() bool {
	return id.Method == AuthMethodAnonymous || id.Principal == ""
}

// AnonymousIdentity creates a default anonymous identity, used when an
// AuthProvider admits a request without resolving a named operator.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: "anonymous",
		Method:    AuthMethodAnonymous,
		Claims:    make(map[string]any),
	}
}
