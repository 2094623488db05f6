package config

type OIDCConfig interface {
	GetOIDCIssuer() string
	GetOIDCJWKSURL() string
	GetOIDCAudience() string
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

// GetOIDCIssuer is the identity provider realm URL used for optional signature checks.
func (OIDC) GetOIDCIssuer() string {
	return GetEnv("CONSOLE_OIDC_ISSUER", "")
}

// GetOIDCJWKSURL overrides discovery when the provider's JWKS is not at the
// issuer's advertised location. Empty means use discovery.
func (OIDC) GetOIDCJWKSURL() string {
	return GetEnv("CONSOLE_OIDC_JWKS_URL", "")
}

// GetOIDCAudience is the client id the token's aud claim must contain. Empty
// skips the audience check.
func (OIDC) GetOIDCAudience() string {
	return GetEnv("CONSOLE_OIDC_AUDIENCE", "")
}
