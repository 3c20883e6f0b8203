// Package auth provides identity and authorization primitives: an
// Identity carrying roles and permissions, an Authorizer interface
// deciding whether a subject may perform an action on a resource, and a
// role-based SimpleRBACAuthorizer implementation. It is transport- and
// protocol-agnostic: how an Identity was established is out of scope;
// configplane.RBACAuthProvider adapts this package to gate the live-config
// command channel.
package auth
