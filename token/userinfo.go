package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/travelbook/admin-console/internal/utils"
)

// UserInfo is the normalized identity carried by an access token.
type UserInfo struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Clients       []string  `json:"clients"`
	Roles         []string  `json:"roles"`
	ExpiresAt     time.Time `json:"expiresAt"`
	IssuedAt      time.Time `json:"issuedAt"`
	Issuer        string    `json:"issuer"`
	Audience      []string  `json:"audience"`
	Scope         string    `json:"scope"`
}

// ExtractUserInfo maps standard and platform claim names into a UserInfo.
// It returns false if the token can't be decoded.
func ExtractUserInfo(raw string) (*UserInfo, bool) {
	claims, ok := Decode(raw)
	if !ok {
		return nil, false
	}

	info := &UserInfo{
		ID:            firstNonEmpty(getString(claims, "user_id"), getString(claims, "sub")),
		Username:      firstNonEmpty(getString(claims, "preferred_username"), getString(claims, "username")),
		FirstName:     getString(claims, "given_name"),
		LastName:      getString(claims, "family_name"),
		Email:         getString(claims, "email"),
		EmailVerified: getBool(claims, "email_verified"),
		Clients:       utils.ToStringSlice(claims["clients"]),
		Roles:         rolesFromClaims(claims),
		Issuer:        getString(claims, "iss"),
		Scope:         getString(claims, "scope"),
	}
	info.Name = firstNonEmpty(getString(claims, "name"), strings.TrimSpace(info.FirstName+" "+info.LastName))

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if aud, err := claims.GetAudience(); err == nil {
		info.Audience = aud
	}
	return info, true
}

func getString(claims jwtlib.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getBool(claims jwtlib.MapClaims, key string) bool {
	if val, ok := claims[key].(bool); ok {
		return val
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
