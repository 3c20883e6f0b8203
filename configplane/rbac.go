package configplane

import (
	"context"
	"strings"

	"github.com/aperturestack/guardrail/auth"
)

// RBACAuthProvider adapts auth.Authorizer (typically a
// *auth.SimpleRBACAuthorizer) to the command channel's AuthProvider
// interface. Tokens map to Identities through a caller-supplied lookup;
// every command is authorized against a single fixed resource/action pair
// rather than per-command, since AuthProvider.Authorize receives only the
// envelope's bare token and not which command is being run.
// Operators who need read/write-separated access should issue distinct
// tokens (and, if desired, distinct Routers) rather than relying on
// per-command resource scoping here.
type RBACAuthProvider struct {
	authorizer auth.Authorizer
	identities map[string]*auth.Identity
	resource   string
	action     string
}

// NewRBACAuthProvider builds a provider that resolves token to an Identity
// via identities and authorizes it against resource/action using
// authorizer. A missing or blank token is always denied.
func NewRBACAuthProvider(authorizer auth.Authorizer, identities map[string]*auth.Identity, resource, action string) *RBACAuthProvider {
	return &RBACAuthProvider{authorizer: authorizer, identities: identities, resource: resource, action: action}
}

// Authorize resolves token to its Identity and delegates the decision to
// the wrapped auth.Authorizer, returning the Identity as data on success.
func (p *RBACAuthProvider) Authorize(ctx context.Context, token string) (bool, any, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil, newError(CodeAuthDenied, "auth token is required")
	}

	identity, ok := p.identities[token]
	if !ok {
		return false, nil, newError(CodeAuthDenied, "auth token is not recognized")
	}

	err := p.authorizer.Authorize(ctx, &auth.AuthzRequest{
		Subject:      identity,
		Resource:     p.resource,
		Action:       p.action,
		ResourceType: "configplane",
	})
	if err != nil {
		return false, nil, newError(CodeAuthDenied, "%s: %v", identity.Principal, err)
	}
	return true, identity, nil
}
