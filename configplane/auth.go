package configplane

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthProvider authorizes an inbound command's auth token. The built-in
// providers deny with ok=false and a *Error{Code: CodeAuthDenied}. The
// router keeps the code of a returned *Error, reports any other error as
// CodeInternalError, and reports ok=false with a nil error as
// CodeAuthDenied.
type AuthProvider interface {
	Authorize(ctx context.Context, token string) (ok bool, data any, err error)
}

// AllowAllAuthProvider authorizes every request unconditionally. It
// exists for local development and for commands arriving over an
// already-authenticated transport.
type AllowAllAuthProvider struct{}

// Authorize always succeeds.
func (AllowAllAuthProvider) Authorize(context.Context, string) (bool, any, error) {
	return true, nil, nil
}

// OpaqueTokenAuthProvider authorizes a request whose token is a member of
// a fixed set of opaque bearer tokens. A missing, blank, or unrecognized
// token is denied.
type OpaqueTokenAuthProvider struct {
	tokens map[string]struct{}
}

// NewOpaqueTokenAuthProvider builds a provider accepting exactly the
// given tokens.
func NewOpaqueTokenAuthProvider(tokens ...string) *OpaqueTokenAuthProvider {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return &OpaqueTokenAuthProvider{tokens: set}
}

// Authorize denies a missing/blank token or one outside the configured
// set, with CodeAuthDenied in either case.
func (p *OpaqueTokenAuthProvider) Authorize(_ context.Context, token string) (bool, any, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil, newError(CodeAuthDenied, "auth token is required")
	}
	if _, ok := p.tokens[token]; !ok {
		return false, nil, newError(CodeAuthDenied, "auth token is not recognized")
	}
	return true, nil, nil
}

// JWTConfig configures JWTAuthProvider.
type JWTConfig struct {
	// Issuer, if set, must match the token's iss claim.
	Issuer string
	// Audience, if set, must appear in the token's aud claim.
	Audience string
}

// JWTAuthProvider authorizes a request whose token is a signed JWT,
// validated against KeyFunc (see golang-jwt/jwt's Keyfunc) rather than an
// HTTP Authorization header, since the control plane's auth token is
// already a bare string pulled from the command envelope.
type JWTAuthProvider struct {
	cfg     JWTConfig
	keyFunc jwt.Keyfunc
}

// NewJWTAuthProvider builds a JWTAuthProvider resolving signing keys via
// keyFunc.
func NewJWTAuthProvider(cfg JWTConfig, keyFunc jwt.Keyfunc) *JWTAuthProvider {
	return &JWTAuthProvider{cfg: cfg, keyFunc: keyFunc}
}

// Authorize parses and validates token as a JWT, checking Issuer/Audience
// when configured, and returns the token's claims as data on success.
func (p *JWTAuthProvider) Authorize(_ context.Context, token string) (bool, any, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil, newError(CodeAuthDenied, "auth token is required")
	}

	parsed, err := jwt.Parse(token, p.keyFunc)
	if err != nil || !parsed.Valid {
		return false, nil, newError(CodeAuthDenied, "auth token is invalid")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false, nil, newError(CodeAuthDenied, "auth token claims are malformed")
	}

	if p.cfg.Issuer != "" {
		if iss, _ := claims["iss"].(string); iss != p.cfg.Issuer {
			return false, nil, newError(CodeAuthDenied, "auth token issuer is not recognized")
		}
	}
	if p.cfg.Audience != "" && !containsAudience(claims, p.cfg.Audience) {
		return false, nil, newError(CodeAuthDenied, "auth token audience is not recognized")
	}

	return true, map[string]any(claims), nil
}

func containsAudience(claims jwt.MapClaims, target string) bool {
	switch v := claims["aud"].(type) {
	case string:
		return v == target
	case []interface{}:
		for _, a := range v {
			if s, ok := a.(string); ok && s == target {
				return true
			}
		}
	}
	return false
}
