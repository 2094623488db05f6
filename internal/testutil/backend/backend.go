// Package backend is an in-process fake of the booking platform REST API for tests.
package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/travelbook/admin-console/api"
)

const (
	Issuer      = "https://id.travelbook.example/realms/travelbook"
	signingKey  = "backend-test-secret"
	tokenExpiry = 15 * time.Minute
)

// User is an account known to the fake backend.
type User struct {
	Username   string
	Password   string
	Name       string
	Email      string
	Clients    []string
	Roles      []string
	KeycloakID string
	UserID     string
}

type failure struct {
	status  int
	message string
	drop    bool
}

// Server is the fake API. All paths match the api package constants.
type Server struct {
	srv *httptest.Server

	mu            sync.Mutex
	users         map[string]*User
	accessTokens  map[string]string // access token -> username
	refreshTokens map[string]string // refresh token -> username
	failures      map[string]failure
	delays        map[string]time.Duration
	calls         map[string]int
	lastAuth      map[string]string
	lastBody      map[string]string
	records       map[string]map[string]map[string]any
	rotateRefresh bool
	nextID        int
}

func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		users:         make(map[string]*User),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		failures:      make(map[string]failure),
		delays:        make(map[string]time.Duration),
		calls:         make(map[string]int),
		lastAuth:      make(map[string]string),
		lastBody:      make(map[string]string),
		records:       make(map[string]map[string]map[string]any),
		rotateRefresh: true,
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) URL() string {
	return s.srv.URL
}

// AddUser registers an account that can sign in.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(&u)
}

// Fail makes every request to path answer status with message.
func (s *Server) Fail(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, message: message}
}

// Drop makes the server close the connection without answering path.
func (s *Server) Drop(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{drop: true}
}

// Delay holds requests to path for d before answering.
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = d
}

// KeepRefreshToken stops the refresh endpoint from rotating refresh tokens.
func (s *Server) KeepRefreshToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotateRefresh = false
}

// Calls counts requests received for path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastAuthorization returns the Authorization header of the latest request to path.
func (s *Server) LastAuthorization(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth[path]
}

// LastBody returns the body of the latest request to path.
func (s *Server) LastBody(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody[path]
}

// IssueToken signs an access token for a registered user.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(s.users[username])
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Post(api.PathSignIn, s.signIn)
	r.Post(api.PathSignUp, s.signUp)
	r.Post(api.PathSignOut, s.signOut)
	r.Post(api.PathRefresh, s.refresh)
	r.Get(api.PathProfile, s.profile)

	r.Route("/{collection}", func(r chi.Router) {
		r.Use(requireBearer)
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/{id}", s.get)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.remove)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimRight(r.URL.Path, "/")
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.calls[path]++
		s.lastAuth[path] = r.Header.Get("Authorization")
		s.lastBody[path] = string(body)
		fail, failing := s.failures[path]
		delay := s.delays[path]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			if fail.drop {
				if hj, ok := w.(http.Hijacker); ok {
					if conn, _, err := hj.Hijack(); err == nil {
						_ = conn.Close()
						return
					}
				}
			}
			status := fail.status
			if status == 0 {
				status = http.StatusBadGateway
			}
			writeJSON(w, status, map[string]any{"success": false, "message": fail.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "missing token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "message": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[body.Username]
	if !ok || u.Password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, api.Envelope[map[string]any]{Success: true, Data: s.authDataLocked(u, false)})
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string   `json:"username"`
		Email    string   `json:"email"`
		Password string   `json:"password"`
		Name     string   `json:"name"`
		Clients  []string `json:"clients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Username]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "user exists"})
		return
	}
	u := &User{
		Username: body.Username,
		Password: body.Password,
		Name:     body.Name,
		Email:    body.Email,
		Clients:  body.Clients,
		Roles:    []string{"partner"},
	}
	s.addUserLocked(u)
	writeJSON(w, http.StatusCreated, api.Envelope[map[string]any]{Success: true, Data: s.authDataLocked(u, true)})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.refreshTokens[body.RefreshToken]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "refresh token expired"})
		return
	}
	data := map[string]any{"accessToken": s.issueLocked(s.users[username])}
	if s.rotateRefresh {
		delete(s.refreshTokens, body.RefreshToken)
		data["refreshToken"] = s.newRefreshLocked(username)
	}
	writeJSON(w, http.StatusOK, api.Envelope[map[string]any]{Success: true, Data: data})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.accessTokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "token expired"})
		return
	}
	u := s.users[username]
	writeJSON(w, http.StatusOK, api.Envelope[api.ProfilePayload]{Success: true, Data: api.ProfilePayload{
		UserID:   api.ID(u.UserID),
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Clients:  u.Clients,
	}})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]map[string]any, 0)
	for _, rec := range s.records[chi.URLParam(r, "collection")] {
		if matches(rec, r.URL.Query()) {
			items = append(items, rec)
		}
	}
	writeJSON(w, http.StatusOK, api.Envelope[[]map[string]any]{Success: true, Data: items})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	collection := chi.URLParam(r, "collection")
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]map[string]any)
	}
	s.nextID++
	id := fmt.Sprintf("%s-%d", collection, s.nextID)
	rec["id"] = id
	s.records[collection][id] = rec
	writeJSON(w, http.StatusCreated, api.Envelope[map[string]any]{Success: true, Data: rec})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[chi.URLParam(r, "collection")][chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}
	// bare object, no envelope
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	if _, ok := s.records[collection][id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}
	rec["id"] = id
	s.records[collection][id] = rec
	writeJSON(w, http.StatusOK, api.Envelope[map[string]any]{Success: true, Data: rec})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[chi.URLParam(r, "collection")], chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addUserLocked(u *User) {
	if u.KeycloakID == "" {
		u.KeycloakID = uuid.NewString()
	}
	if u.UserID == "" {
		s.nextID++
		u.UserID = fmt.Sprintf("%d", s.nextID)
	}
	s.users[u.Username] = u
}

func (s *Server) authDataLocked(u *User, signup bool) map[string]any {
	data := map[string]any{
		"accessToken":  s.issueLocked(u),
		"refreshToken": s.newRefreshLocked(u.Username),
		"keycloakId":   u.KeycloakID,
		"userId":       u.UserID,
		"username":     u.Username,
		"clients":      u.Clients,
	}
	if signup {
		data["name"] = u.Name
		data["email"] = u.Email
	}
	return data
}

func (s *Server) issueLocked(u *User) string {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"iss":                Issuer,
		"sub":                u.KeycloakID,
		"jti":                uuid.NewString(),
		"preferred_username": u.Username,
		"email":              u.Email,
		"email_verified":     true,
		"clients":            u.Clients,
		"realm_access": map[string]any{
			"roles": append([]string{"default-roles-travelbook", "offline_access", "uma_authorization"}, u.Roles...),
		},
		"iat": now.Unix(),
		"exp": now.Add(tokenExpiry).Unix(),
	}
	if u.Name != "" {
		claims["name"] = u.Name
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	s.accessTokens[signed] = u.Username
	return signed
}

func (s *Server) newRefreshLocked(username string) string {
	token := "r-" + uuid.NewString()
	s.refreshTokens[token] = username
	return token
}

func matches(rec map[string]any, query map[string][]string) bool {
	for key, values := range query {
		if len(values) > 0 && fmt.Sprint(rec[key]) != values[0] {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
