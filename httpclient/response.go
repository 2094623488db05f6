package httpclient

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	apperrors "github.com/travelbook/admin-console/internal/errors"
)

// Response is a successful (2xx) reply with its body already read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	JSON       bool // Content-Type was JSON
}

// Decode parses a JSON body into out.
func (r *Response) Decode(out any) error {
	if !r.JSON {
		return apperrors.ErrNotJSON
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return errors.Wrap(err, "[Response.Decode] unmarshal")
	}
	return nil
}

// Text returns the raw body.
func (r *Response) Text() string {
	return string(r.Body)
}
