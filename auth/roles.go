package auth

import (
	"slices"

	"github.com/devmarvs/bulwark"
)

// RoleSet lists the roles permitted on a route.
type RoleSet []string

// Contains reports whether role is permitted. An empty set permits nothing.
func (s RoleSet) Contains(role string) bool {
	if role == "" {
		return false
	}
	return slices.Contains(s, role)
}

// Authorize requires an attached principal whose role is in allowed.
func Authorize(principal *bulwark.Principal, allowed RoleSet) error {
	if principal == nil {
		return ErrNotAuthenticated
	}
	if !allowed.Contains(principal.Role) {
		return ErrForbidden
	}
	return nil
}

// HasRole reports whether a principal has the given role.
func HasRole(principal *bulwark.Principal, role string) bool {
	return principal != nil && role != "" && principal.Role == role
}

// HasAnyRole reports whether a principal has any of the provided roles.
func HasAnyRole(principal *bulwark.Principal, roles ...string) bool {
	return principal != nil && RoleSet(roles).Contains(principal.Role)
}

// RoleAuthorizer implements bulwark.Authorizer over a fixed role set.
type RoleAuthorizer struct {
	Roles RoleSet
}

// RequireRoles builds an authorizer permitting any of roles.
func RequireRoles(roles ...string) RoleAuthorizer {
	return RoleAuthorizer{Roles: append(RoleSet{}, roles...)}
}

// Authorize implements bulwark.Authorizer.
func (r RoleAuthorizer) Authorize(_ *bulwark.Context, principal *bulwark.Principal) error {
	return Authorize(principal, r.Roles)
}
