package token

import (
	"slices"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// RoleList is the {"roles": [...]} object used by realm_access and each
// resource_access entry.
type RoleList struct {
	Roles []string `json:"roles"`
}

// Claims is the typed view of an identity-provider access token.
type Claims struct {
	jwtlib.RegisteredClaims

	UserID            string              `json:"user_id,omitempty"`
	PreferredUsername string              `json:"preferred_username,omitempty"`
	Username          string              `json:"username,omitempty"`
	Name              string              `json:"name,omitempty"`
	GivenName         string              `json:"given_name,omitempty"`
	FamilyName        string              `json:"family_name,omitempty"`
	Email             string              `json:"email,omitempty"`
	EmailVerified     bool                `json:"email_verified,omitempty"`
	Clients           []string            `json:"clients,omitempty"`
	Roles             []string            `json:"roles,omitempty"`
	RealmAccess       RoleList            `json:"realm_access"`
	ResourceAccess    map[string]RoleList `json:"resource_access,omitempty"`
	Scope             string              `json:"scope,omitempty"`
}

// AllRoles applies the same precedence, de-duplication and filtering as
// ExtractRoles to the typed claims.
func (c *Claims) AllRoles() []string {
	roles := slices.Clone(c.RealmAccess.Roles)
	for _, resource := range sortedKeys(c.ResourceAccess) {
		roles = append(roles, c.ResourceAccess[resource].Roles...)
	}
	roles = append(roles, c.Roles...)
	return filterRoles(roles)
}
