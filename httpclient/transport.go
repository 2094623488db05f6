package httpclient

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// bearerTransport reads the token source on every request, so a refreshed
// token is used without reconfiguring the client.
type bearerTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.source.Token()
	if err == nil && tok != nil && tok.AccessToken != "" {
		req = req.Clone(req.Context())
		tok.SetAuthHeader(req)
	}
	return t.base.RoundTrip(req)
}

// unauthorizedTransport fires onUnauthorized for every 401 response.
type unauthorizedTransport struct {
	base           http.RoundTripper
	onUnauthorized func()
}

func (t *unauthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		log.Warn().Str("url", req.URL.String()).Msg("httpclient: 401, session expired")
		t.onUnauthorized()
	}
	return resp, err
}
