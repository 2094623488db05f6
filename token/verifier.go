package token

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"

	apperrors "github.com/travelbook/admin-console/internal/errors"
)

// Verifier checks access-token signatures against the identity provider's
// published keys. It is opt-in: the decode helpers in this package never use it.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// VerifierOption customises the underlying oidc verification.
type VerifierOption func(*oidc.Config)

// WithAudience requires the token's aud claim to contain clientID.
func WithAudience(clientID string) VerifierOption {
	return func(c *oidc.Config) {
		c.ClientID = clientID
		c.SkipClientIDCheck = false
	}
}

// WithSkipExpiry accepts expired tokens, for inspecting a stale session.
func WithSkipExpiry() VerifierOption {
	return func(c *oidc.Config) {
		c.SkipExpiryCheck = true
	}
}

// NewVerifier builds a Verifier for issuer. When jwksURL is empty the key set
// location is taken from the issuer's discovery document.
func NewVerifier(ctx context.Context, issuer, jwksURL string, options ...VerifierOption) (*Verifier, error) {
	if issuer == "" {
		return nil, errors.New("[NewVerifier] issuer is required")
	}

	cfg := &oidc.Config{SkipClientIDCheck: true}
	for _, opt := range options {
		opt(cfg)
	}

	if jwksURL != "" {
		keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
		return &Verifier{verifier: oidc.NewVerifier(issuer, keySet, cfg)}, nil
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[NewVerifier] oidc.NewProvider")
	}
	return &Verifier{verifier: provider.Verifier(cfg)}, nil
}

// Verify checks the signature, issuer, audience (when set) and (unless
// skipped) expiry of raw and returns its claims. Rejections wrap ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrInvalidToken, "[Verifier.Verify] %v", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[Verifier.Verify] claims")
	}
	return &claims, nil
}
