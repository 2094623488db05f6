package token

import (
	"maps"
	"slices"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/travelbook/admin-console/internal/utils"
)

const (
	// defaultRolesPrefix marks the identity provider's per-realm default composite role.
	defaultRolesPrefix = "default-roles-"
	roleOfflineAccess  = "offline_access"
	roleUMA            = "uma_authorization"
)

// IsInfrastructureRole reports whether role is an identity-provider default
// rather than an application role.
func IsInfrastructureRole(role string) bool {
	return role == roleOfflineAccess || role == roleUMA || strings.HasPrefix(role, defaultRolesPrefix)
}

// ExtractRoles collects realm roles, every resource's roles and the flat
// "roles" claim, in that order, de-duplicated and without infrastructure
// defaults. It returns an empty slice if the token can't be decoded.
func ExtractRoles(raw string) []string {
	claims, ok := Decode(raw)
	if !ok {
		return []string{}
	}
	return rolesFromClaims(claims)
}

func rolesFromClaims(claims jwtlib.MapClaims) []string {
	var roles []string
	if realm, ok := claims["realm_access"].(map[string]any); ok {
		roles = append(roles, utils.ToStringSlice(realm["roles"])...)
	}
	if resources, ok := claims["resource_access"].(map[string]any); ok {
		for _, name := range sortedKeys(resources) {
			if resource, ok := resources[name].(map[string]any); ok {
				roles = append(roles, utils.ToStringSlice(resource["roles"])...)
			}
		}
	}
	roles = append(roles, utils.ToStringSlice(claims["roles"])...)
	return filterRoles(roles)
}

func filterRoles(roles []string) []string {
	return utils.Without(utils.Unique(roles), IsInfrastructureRole)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
