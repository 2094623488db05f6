package api

import (
	"github.com/pkg/errors"

	"github.com/travelbook/admin-console/httpclient"
)

// AuthPayload is the data of a successful sign-in or sign-up.
type AuthPayload struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	KeycloakID   ID       `json:"keycloakId"`
	UserID       ID       `json:"userId"`
	Username     string   `json:"username"`
	Clients      []string `json:"clients"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
}

// RefreshPayload is the data of a successful token refresh. RefreshToken is
// empty when the server doesn't rotate it.
type RefreshPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// ProfilePayload is the data of the profile endpoint.
type ProfilePayload struct {
	UserID   ID       `json:"userId"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
	Clients  []string `json:"clients,omitempty"`
}

// DecodeAuth requires {success: true, data: {accessToken, ...}}.
func DecodeAuth(resp *httpclient.Response) (Envelope[AuthPayload], error) {
	var env Envelope[AuthPayload]
	if err := resp.Decode(&env); err != nil {
		return env, errors.Wrap(ErrUnexpectedResponse, err.Error())
	}
	if !env.Success {
		return env, &EnvelopeError{Message: env.Message}
	}
	if env.Data.AccessToken == "" {
		return env, &EnvelopeError{Message: "response has no access token"}
	}
	return env, nil
}

// DecodeRefresh accepts the refreshed tokens either enveloped or bare.
func DecodeRefresh(resp *httpclient.Response) (RefreshPayload, error) {
	payload, err := DecodeData[RefreshPayload](resp)
	if err != nil {
		return payload, err
	}
	if payload.AccessToken == "" {
		return payload, &EnvelopeError{Message: "response has no access token"}
	}
	return payload, nil
}
