package auth

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials is the sign-in request body.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate rejects blank usernames and passwords before any request is made.
func (c Credentials) Validate() error {
	c.Username = strings.TrimSpace(c.Username)
	return validate.Struct(c)
}

// SignupRequest is the sign-up request body. Clients lists the booking
// services ("hotel", "bus", ...) the new account should be entitled to.
// Password strength and field formats beyond the email address are the
// server's call; it answers 400 or 422.
type SignupRequest struct {
	Username string   `json:"username" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Name     string   `json:"name,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Clients  []string `json:"clients,omitempty"`
}

func (r SignupRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return validate.Struct(r)
}
