// Package auth drives the session lifecycle against the platform's identity
// endpoints: anonymous -> authenticated -> anonymous.
package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/httpclient"
	apperrors "github.com/travelbook/admin-console/internal/errors"
	"github.com/travelbook/admin-console/internal/utils"
	"github.com/travelbook/admin-console/sessions"
	"github.com/travelbook/admin-console/token"
)

// Service performs the auth operations and is the only writer of the session store.
type Service struct {
	store     *sessions.Store
	client    *httpclient.Client // interceptor client: bearer from store, 401 clears store
	endpoints api.Endpoints
	baseURL   string
	timeout   time.Duration
	nowTime   func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithBaseURL sets the API base URL the service builds its client for.
func WithBaseURL(baseURL string) ServiceOption {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithTimeout sets the request timeout of the service's client.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = timeout
	}
}

// WithHTTPClient replaces the service's own client. The caller is then
// responsible for its token and 401 handling.
func WithHTTPClient(client *httpclient.Client) ServiceOption {
	return func(s *Service) {
		s.client = client
	}
}

// WithEndpoints relocates the identity endpoints.
func WithEndpoints(endpoints api.Endpoints) ServiceOption {
	return func(s *Service) {
		s.endpoints = endpoints
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService builds a Service over store. Unless WithHTTPClient is given, a
// base URL is required.
func NewService(store *sessions.Store, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] store is required")
	}

	s := &Service{
		store:     store,
		endpoints: api.DefaultEndpoints(),
		timeout:   httpclient.DefaultTimeout,
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.client == nil {
		if s.baseURL == "" {
			return nil, errors.New("[NewService] base URL is required")
		}
		client, err := httpclient.New(s.baseURL,
			httpclient.WithTimeout(s.timeout),
			httpclient.WithTokenSource(store),
			httpclient.WithUnauthorizedHandler(func() { store.ClearAll() }),
		)
		if err != nil {
			return nil, errors.Wrap(err, "[NewService] httpclient.New")
		}
		s.client = client
	}
	return s, nil
}

// Login signs in and persists the session. On failure storage is left empty
// and the error is an *Error carrying a display message.
func (s *Service) Login(ctx context.Context, credentials Credentials) (api.Envelope[api.AuthPayload], error) {
	var env api.Envelope[api.AuthPayload]
	if err := credentials.Validate(); err != nil {
		return env, Classify(OpLogin, err)
	}

	resp, err := s.client.Post(ctx, s.endpoints.SignIn, credentials)
	if err != nil {
		return env, s.fail(OpLogin, err)
	}
	if env, err = api.DecodeAuth(resp); err != nil {
		return env, s.fail(OpLogin, err)
	}
	if err := s.establish(env.Data); err != nil {
		return env, s.fail(OpLogin, err)
	}

	log.Info().Str("username", env.Data.Username).Msg("auth: signed in")
	return env, nil
}

// Signup creates an account and signs it in, exactly like Login.
func (s *Service) Signup(ctx context.Context, request SignupRequest) (api.Envelope[api.AuthPayload], error) {
	var env api.Envelope[api.AuthPayload]
	if err := request.Validate(); err != nil {
		return env, Classify(OpSignup, err)
	}

	resp, err := s.client.Post(ctx, s.endpoints.SignUp, request)
	if err != nil {
		return env, s.fail(OpSignup, err)
	}
	if env, err = api.DecodeAuth(resp); err != nil {
		return env, s.fail(OpSignup, err)
	}
	if env.Data.Name == "" {
		env.Data.Name = request.Name
	}
	if env.Data.Email == "" {
		env.Data.Email = request.Email
	}
	if err := s.establish(env.Data); err != nil {
		return env, s.fail(OpSignup, err)
	}

	log.Info().Str("username", env.Data.Username).Msg("auth: signed up")
	return env, nil
}

// Logout tells the server the session is over and clears local storage no
// matter what the server says. It always returns nil.
func (s *Service) Logout(ctx context.Context) error {
	defer s.store.ClearAll()

	data := s.store.AuthData()
	if !data.Authenticated() {
		return nil
	}
	if _, err := s.client.Post(ctx, s.endpoints.SignOut, map[string]string{"refreshToken": data.RefreshToken}); err != nil {
		log.Warn().Err(err).Msg("auth: server-side logout failed, clearing local session")
	}
	return nil
}

// SignOut is Logout.
func (s *Service) SignOut(ctx context.Context) error {
	return s.Logout(ctx)
}

// RefreshToken exchanges the stored refresh token for new tokens. Any
// failure wipes the session.
func (s *Service) RefreshToken(ctx context.Context) (*sessions.AuthData, error) {
	data := s.store.AuthData()
	if data == nil || data.RefreshToken == "" {
		return nil, &Error{
			Op:      OpRefresh,
			Kind:    KindSessionExpired,
			Message: MsgSessionExpired,
			Err:     apperrors.ErrNoRefreshToken,
		}
	}

	resp, err := s.client.Post(ctx, s.endpoints.Refresh, map[string]string{"refreshToken": data.RefreshToken})
	if err != nil {
		return nil, s.fail(OpRefresh, err)
	}
	payload, err := api.DecodeRefresh(resp)
	if err != nil {
		return nil, s.fail(OpRefresh, err)
	}

	merged := *data
	merged.AccessToken = payload.AccessToken
	if payload.RefreshToken != "" {
		merged.RefreshToken = payload.RefreshToken
	}
	merged.Timestamp = s.nowTime().UnixMilli()
	if !s.store.SaveAuthData(merged) {
		return nil, s.fail(OpRefresh, errors.Wrap(apperrors.ErrStorage, "[Service.RefreshToken] save auth data"))
	}

	log.Debug().Str("username", merged.Username).Msg("auth: token refreshed")
	return &merged, nil
}

// SyncProfile fetches the server profile and merges display name, email
// and entitlements into the stored profile.
func (s *Service) SyncProfile(ctx context.Context) (*sessions.UserProfile, error) {
	data := s.store.AuthData()
	if !data.Authenticated() {
		return nil, Classify(OpProfile, apperrors.ErrNoSession)
	}

	resp, err := s.client.Get(ctx, s.endpoints.Profile)
	if err != nil {
		return nil, Classify(OpProfile, err)
	}
	payload, err := api.DecodeData[api.ProfilePayload](resp)
	if err != nil {
		return nil, Classify(OpProfile, err)
	}

	user := s.store.User()
	if user == nil {
		user = &sessions.UserProfile{
			KeycloakID: data.KeycloakID,
			UserID:     data.UserID,
			Username:   data.Username,
			Roles:      s.store.Roles(),
			LoginTime:  data.Timestamp,
		}
	}
	if payload.Name != "" {
		user.Name = payload.Name
	}
	if payload.Email != "" {
		user.Email = payload.Email
	}
	if len(payload.Clients) > 0 {
		user.Clients = payload.Clients
	}
	if payload.UserID != "" {
		user.UserID = payload.UserID.String()
	}
	if !s.store.SaveUser(*user) {
		return nil, Classify(OpProfile, errors.Wrap(apperrors.ErrStorage, "[Service.SyncProfile] save user"))
	}
	return user, nil
}

// IsAuthenticated reports whether an access token is stored. Expiry is not
// checked; the server answers 401 for that.
func (s *Service) IsAuthenticated() bool {
	return s.store.AuthData().Authenticated()
}

// StoredUser returns the cached profile, or nil.
func (s *Service) StoredUser() *sessions.UserProfile {
	return s.store.User()
}

// StoredToken returns the access token, or "".
func (s *Service) StoredToken() string {
	data := s.store.AuthData()
	if data == nil {
		return ""
	}
	return data.AccessToken
}

// StoredAuthData returns the session record, or nil.
func (s *Service) StoredAuthData() *sessions.AuthData {
	return s.store.AuthData()
}

// StoredUserRoles returns the cached roles, never nil.
func (s *Service) StoredUserRoles() []string {
	return s.store.Roles()
}

// establish persists the auth record, then the roles and profile derived
// from the access token.
func (s *Service) establish(payload api.AuthPayload) error {
	now := s.nowTime()

	data := sessions.AuthData{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		KeycloakID:   payload.KeycloakID.String(),
		UserID:       payload.UserID.String(),
		Username:     payload.Username,
		Clients:      utils.CloneSlice(payload.Clients),
		Timestamp:    now.UnixMilli(),
	}
	if !s.store.SaveAuthData(data) {
		return errors.Wrap(apperrors.ErrStorage, "[Service.establish] save auth data")
	}

	roles := token.ExtractRoles(payload.AccessToken)
	if !s.store.SaveRoles(roles) {
		return errors.Wrap(apperrors.ErrStorage, "[Service.establish] save roles")
	}
	if !s.store.SaveUser(buildProfile(payload, roles, now)) {
		return errors.Wrap(apperrors.ErrStorage, "[Service.establish] save user")
	}
	return nil
}

// fail clears the session and classifies err.
func (s *Service) fail(op Operation, err error) *Error {
	s.store.ClearAll()
	classified := Classify(op, err)
	log.Warn().
		Err(err).
		Str("op", string(op)).
		Str("kind", classified.Kind.String()).
		Int("status", classified.Status).
		Msg("auth: operation failed")
	return classified
}

func buildProfile(payload api.AuthPayload, roles []string, now time.Time) sessions.UserProfile {
	info, ok := token.ExtractUserInfo(payload.AccessToken)
	if !ok {
		info = &token.UserInfo{}
	}

	username := firstNonEmpty(payload.Username, info.Username)
	clients := payload.Clients
	if len(clients) == 0 {
		clients = info.Clients
	}
	return sessions.UserProfile{
		KeycloakID: firstNonEmpty(payload.KeycloakID.String(), info.ID),
		UserID:     payload.UserID.String(),
		Username:   username,
		Name:       firstNonEmpty(payload.Name, info.Name, username),
		Email:      firstNonEmpty(payload.Email, info.Email, username),
		Clients:    utils.CloneSlice(clients),
		Roles:      roles,
		LoginTime:  now.UnixMilli(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
