package auth

import (
	"testing"
	"time"
)

func TestIdentity_HasRole(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		role     string
		want     bool
	}{
		{"empty roles", &Identity{Roles: []string{}}, "admin", false},
		{"has role", &Identity{Roles: []string{"viewer", "operator"}}, "operator", true},
		{"does not have role", &Identity{Roles: []string{"viewer"}}, "operator", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.HasRole(tt.role); got != tt.want {
				t.Errorf("HasRole(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestIdentity_HasPermission(t *testing.T) {
	tests := []struct {
		name       string
		identity   *Identity
		permission string
		want       bool
	}{
		{"empty permissions", &Identity{Permissions: []string{}}, "path:*:read_config", false},
		{"has permission", &Identity{Permissions: []string{"path:*:read_config", "path:*:write_config"}}, "path:*:write_config", true},
		{"does not have permission", &Identity{Permissions: []string{"path:*:read_config"}}, "path:*:write_config", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.HasPermission(tt.permission); got != tt.want {
				t.Errorf("HasPermission(%q) = %v, want %v", tt.permission, got, tt.want)
			}
		})
	}
}

func TestIdentity_IsExpired(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		want     bool
	}{
		{"zero expiry never expires", &Identity{}, false},
		{"expired", &Identity{ExpiresAt: time.Now().Add(-time.Hour)}, true},
		{"not expired", &Identity{ExpiresAt: time.Now().Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentity_IsAnonymous(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		want     bool
	}{
		{"anonymous method", &Identity{Principal: "anon", Method: AuthMethodAnonymous}, true},
		{"empty principal", &Identity{Principal: "", Method: AuthMethodJWT}, true},
		{"named operator", &Identity{Principal: "alice", Method: AuthMethodOpaque}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.IsAnonymous(); got != tt.want {
				t.Errorf("IsAnonymous() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnonymousIdentity(t *testing.T) {
	id := AnonymousIdentity()

	if id.Principal != "anonymous" {
		t.Errorf("Principal = %v, want anonymous", id.Principal)
	}
	if id.Method != AuthMethodAnonymous {
		t.Errorf("Method = %v, want anonymous", id.Method)
	}
	if id.Claims == nil {
		t.Error("Claims should be initialized")
	}
	if !id.IsAnonymous() {
		t.Error("IsAnonymous() = false, want true")
	}
}
