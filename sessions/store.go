package sessions

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/travelbook/admin-console/internal/errors"
)

var _ oauth2.TokenSource = (*Store)(nil)

// Store is the single writer of the session records. Every primitive is fault
// tolerant: backend and encoding failures are logged and reported as false,
// never returned.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) (*Store, error) {
	if backend == nil {
		return nil, errors.New("[NewStore] backend is required")
	}
	return &Store{backend: backend}, nil
}

// Set JSON-encodes value and stores it under key.
func (s *Store) Set(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sessions: encode failed")
		return false
	}
	if err := s.backend.Write(key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sessions: write failed")
		return false
	}
	return true
}

// Get decodes the value stored under key into out. It reports false when the
// key is missing or the stored value can't be decoded.
func (s *Store) Get(key string, out any) bool {
	data, err := s.backend.Read(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("sessions: read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sessions: decode failed")
		return false
	}
	return true
}

// Remove deletes key.
func (s *Store) Remove(key string) bool {
	if err := s.backend.Delete(key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sessions: delete failed")
		return false
	}
	return true
}

// ClearAll removes the three session records. Removal is idempotent so a
// partial failure needs no rollback; it reports whether every removal succeeded.
func (s *Store) ClearAll() bool {
	ok := true
	for _, key := range []string{KeyAuthData, KeyUser, KeyRoles} {
		if !s.Remove(key) {
			ok = false
		}
	}
	return ok
}

func (s *Store) SaveAuthData(data AuthData) bool {
	return s.Set(KeyAuthData, data)
}

// AuthData returns the stored session record, or nil.
func (s *Store) AuthData() *AuthData {
	var data AuthData
	if !s.Get(KeyAuthData, &data) {
		return nil
	}
	return &data
}

func (s *Store) SaveUser(user UserProfile) bool {
	return s.Set(KeyUser, user)
}

// User returns the cached profile, or nil.
func (s *Store) User() *UserProfile {
	var user UserProfile
	if !s.Get(KeyUser, &user) {
		return nil
	}
	return &user
}

func (s *Store) SaveRoles(roles []string) bool {
	if roles == nil {
		roles = []string{}
	}
	return s.Set(KeyRoles, roles)
}

// Roles returns the cached role list; empty, never nil, when nothing is stored.
func (s *Store) Roles() []string {
	var roles []string
	if !s.Get(KeyRoles, &roles) || roles == nil {
		return []string{}
	}
	return roles
}

// Token implements oauth2.TokenSource over the stored session so HTTP
// transports always pick up the current access token.
func (s *Store) Token() (*oauth2.Token, error) {
	data := s.AuthData()
	if !data.Authenticated() {
		return nil, apperrors.ErrNoSession
	}
	return &oauth2.Token{
		AccessToken:  data.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: data.RefreshToken,
	}, nil
}
