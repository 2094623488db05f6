package token_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/travelbook/admin-console/token"
)

// unsignedJWT builds a compact token with an arbitrary payload and a dummy signature.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".c2lnbmF0dXJl"
}

func keycloakClaims() map[string]any {
	return map[string]any{
		"sub":                "kc-123",
		"preferred_username": "alice",
		"given_name":         "Alice",
		"family_name":        "Liddell",
		"email":              "alice@example.com",
		"email_verified":     true,
		"clients":            []string{"hotel", "bus"},
		"realm_access": map[string]any{
			"roles": []string{"default-roles-travelbook", "offline_access", "uma_authorization", "admin"},
		},
		"resource_access": map[string]any{
			"hotel-service": map[string]any{"roles": []string{"hotel_manager", "admin"}},
			"bus-service":   map[string]any{"roles": []string{"bus_operator"}},
		},
		"roles": []string{"support", "offline_access"},
		"exp":   1900000000,
		"iat":   1800000000,
		"iss":   "https://id.travelbook.example/realms/travelbook",
		"aud":   "account",
		"scope": "openid profile email",
	}
}

func TestDecodeMalformedTokens(t *testing.T) {
	notJSON := "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".sig"
	jsonArray := "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString([]byte(`["a"]`)) + ".sig"
	jsonNull := "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString([]byte(`null`)) + ".sig"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"invalid base64", "a.!!!not-base64!!!.c"},
		{"invalid json", notJSON},
		{"json array payload", jsonArray},
		{"json null payload", jsonNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := token.Decode(tt.token)
			require.False(t, ok)
			require.Nil(t, claims)

			roles := token.ExtractRoles(tt.token)
			require.NotNil(t, roles)
			require.Empty(t, roles)

			info, ok := token.ExtractUserInfo(tt.token)
			require.False(t, ok)
			require.Nil(t, info)
		})
	}
}

func TestDecodeAcceptsPaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"x"}`))
	require.True(t, strings.HasSuffix(payload, "="))

	claims, ok := token.Decode("h." + payload + ".s")
	require.True(t, ok)
	require.Equal(t, "x", claims["sub"])
}

func TestDecodeDoesNotVerify(t *testing.T) {
	claims := keycloakClaims()
	claims["exp"] = 1000 // long expired
	decoded, ok := token.Decode(unsignedJWT(t, claims))
	require.True(t, ok)
	require.Equal(t, "alice", decoded["preferred_username"])
}

func TestExtractRolesPrecedenceAndDenylist(t *testing.T) {
	roles := token.ExtractRoles(unsignedJWT(t, keycloakClaims()))
	// realm roles, then resources in name order (bus-service, hotel-service), then flat roles
	require.Equal(t, []string{"admin", "bus_operator", "hotel_manager", "support"}, roles)
}

func TestExtractRolesNeverReturnsInfrastructureRoles(t *testing.T) {
	claims := map[string]any{
		"realm_access": map[string]any{"roles": []string{"default-roles-other-realm", "uma_authorization"}},
		"roles":        []any{"offline_access", 42, "viewer"},
	}
	roles := token.ExtractRoles(unsignedJWT(t, claims))
	require.Equal(t, []string{"viewer"}, roles)
	for _, r := range roles {
		require.False(t, token.IsInfrastructureRole(r))
	}
}

func TestExtractRolesWithoutRoleClaims(t *testing.T) {
	roles := token.ExtractRoles(unsignedJWT(t, map[string]any{"sub": "x"}))
	require.NotNil(t, roles)
	require.Empty(t, roles)
}

func TestExtractUserInfo(t *testing.T) {
	info, ok := token.ExtractUserInfo(unsignedJWT(t, keycloakClaims()))
	require.True(t, ok)

	require.Equal(t, "kc-123", info.ID)
	require.Equal(t, "alice", info.Username)
	require.Equal(t, "Alice Liddell", info.Name)
	require.Equal(t, "alice@example.com", info.Email)
	require.True(t, info.EmailVerified)
	require.Equal(t, []string{"hotel", "bus"}, info.Clients)
	require.Equal(t, []string{"admin", "bus_operator", "hotel_manager", "support"}, info.Roles)
	require.True(t, info.ExpiresAt.Equal(time.Unix(1900000000, 0)))
	require.True(t, info.IssuedAt.Equal(time.Unix(1800000000, 0)))
	require.Equal(t, []string{"account"}, info.Audience)
	require.Equal(t, "openid profile email", info.Scope)
}

func TestExtractUserInfoFallbacks(t *testing.T) {
	info, ok := token.ExtractUserInfo(unsignedJWT(t, map[string]any{
		"sub":      "kc-9",
		"user_id":  "u-9",
		"username": "bob",
		"name":     "Bobby",
	}))
	require.True(t, ok)
	require.Equal(t, "u-9", info.ID)
	require.Equal(t, "bob", info.Username)
	require.Equal(t, "Bobby", info.Name)
	require.Empty(t, info.Clients)
}

func TestDecodeClaimsTypedView(t *testing.T) {
	claims, ok := token.DecodeClaims(unsignedJWT(t, keycloakClaims()))
	require.True(t, ok)
	require.Equal(t, "kc-123", claims.Subject)
	require.Equal(t, []string{"hotel", "bus"}, claims.Clients)
	require.Equal(t, token.ExtractRoles(unsignedJWT(t, keycloakClaims())), claims.AllRoles())

	_, ok = token.DecodeClaims("broken")
	require.False(t, ok)
}
