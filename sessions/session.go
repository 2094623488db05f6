package sessions

// Storage keys for the three session records. Removing all three is "clear session".
const (
	KeyAuthData = "authData"
	KeyUser     = "user"
	KeyRoles    = "userRoles"
)

// AuthData is the persisted session record returned by sign-in/sign-up.
type AuthData struct {
	AccessToken  string   `json:"accessToken"`            // Bearer token (JWT)
	RefreshToken string   `json:"refreshToken,omitempty"` // Exchanged at the refresh endpoint
	KeycloakID   string   `json:"keycloakId,omitempty"`   // Identity provider subject
	UserID       string   `json:"userId,omitempty"`       // Platform user ID
	Username     string   `json:"username,omitempty"`
	Clients      []string `json:"clients,omitempty"` // Entitlement tags: "hotel", "bus", ...
	Timestamp    int64    `json:"timestamp"`         // Capture time, epoch millis
}

// Authenticated reports whether the record carries an access token. Nothing
// else is consulted: expiry is the server's call.
func (a *AuthData) Authenticated() bool {
	return a != nil && a.AccessToken != ""
}

// UserProfile is the "who is logged in" read model rebuilt on every
// successful sign-in or sign-up.
type UserProfile struct {
	KeycloakID string   `json:"keycloakId,omitempty"`
	UserID     string   `json:"userId,omitempty"`
	Username   string   `json:"username"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Clients    []string `json:"clients,omitempty"`
	Roles      []string `json:"roles"`
	LoginTime  int64    `json:"loginTime"` // epoch millis
}

// HasClient reports whether the user is entitled to the named booking service.
func (u *UserProfile) HasClient(client string) bool {
	if u == nil {
		return false
	}
	for _, c := range u.Clients {
		if c == client {
			return true
		}
	}
	return false
}

// HasRole reports whether role is in the cached role list.
func (u *UserProfile) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't mutate shared state.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	c.Clients = append([]string(nil), u.Clients...)
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}
