// Package token reads the claims of the platform's access tokens.
//
// Everything here is decode-only: signatures and expiry are not checked. The
// results are for display and for deriving the cached role list, never for
// authorization decisions. See Verifier for a signature-checked view.
package token

import (
	"encoding/json"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const segmentCount = 3

var parser = jwtlib.NewParser(jwtlib.WithPaddingAllowed())

// Decode returns the payload claims of a compact JWT. It returns false if the
// token does not have three segments or the payload is not base64url-encoded
// JSON object. It never panics.
func Decode(raw string) (jwtlib.MapClaims, bool) {
	payload, ok := payloadSegment(raw)
	if !ok {
		return nil, false
	}

	claims := jwtlib.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil || claims == nil {
		log.Warn().Err(err).Msg("token: payload is not a json object")
		return nil, false
	}
	return claims, true
}

// DecodeClaims is Decode into the typed Claims view.
func DecodeClaims(raw string) (*Claims, bool) {
	payload, ok := payloadSegment(raw)
	if !ok {
		return nil, false
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		log.Warn().Err(err).Msg("token: payload does not match claim types")
		return nil, false
	}
	return &claims, true
}

func payloadSegment(raw string) ([]byte, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != segmentCount {
		log.Warn().Int("segments", len(parts)).Msg("token: malformed jwt")
		return nil, false
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		log.Warn().Err(err).Msg("token: payload is not base64url")
		return nil, false
	}
	return payload, true
}
