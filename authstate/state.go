// Package authstate holds the process-wide view of who is signed in. It is
// created once, initialized from storage and handed to whoever renders or
// guards on auth state.
package authstate

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/auth"
	apperrors "github.com/travelbook/admin-console/internal/errors"
	"github.com/travelbook/admin-console/sessions"
)

// ErrNotInitialized is returned by operations called before Initialize or after Teardown.
var ErrNotInitialized = apperrors.ErrNotInitialized

// Authenticator is the part of auth.Service the state drives.
type Authenticator interface {
	Login(ctx context.Context, credentials auth.Credentials) (api.Envelope[api.AuthPayload], error)
	Signup(ctx context.Context, request auth.SignupRequest) (api.Envelope[api.AuthPayload], error)
	SignOut(ctx context.Context) error
	IsAuthenticated() bool
	StoredUser() *sessions.UserProfile
}

// Snapshot is a copy of the state at one instant.
type Snapshot struct {
	User            *sessions.UserProfile
	IsAuthenticated bool
	IsLoading       bool
}

// Listener is notified with the new snapshot after every change.
type Listener func(Snapshot)

// State mirrors the session store. The store is the source of truth: after
// every operation the state is re-read from it rather than from the
// operation's result.
type State struct {
	svc Authenticator

	lock        sync.RWMutex
	initialized bool
	user        *sessions.UserProfile
	authed      bool
	pending     int // operations in flight
	listeners   map[int]Listener
	nextID      int
}

func New(svc Authenticator) (*State, error) {
	if svc == nil {
		return nil, errors.New("[authstate.New] authenticator is required")
	}
	return &State{svc: svc, listeners: make(map[int]Listener)}, nil
}

// Initialize loads the persisted session. No request is made; whatever was
// last stored is trusted until the server says otherwise.
func (s *State) Initialize() {
	s.lock.Lock()
	s.initialized = true
	s.loadLocked()
	s.lock.Unlock()

	log.Debug().Bool("authenticated", s.Snapshot().IsAuthenticated).Msg("authstate: initialized")
	s.notify()
}

// Teardown drops every listener and resets to anonymous.
func (s *State) Teardown() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.initialized = false
	s.user = nil
	s.authed = false
	s.pending = 0
	s.listeners = make(map[int]Listener)
}

// Snapshot returns the current state. The user is a copy.
func (s *State) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers l and returns a function that unregisters it.
func (s *State) Subscribe(l Listener) (unsubscribe func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.listeners, id)
	}
}

// Login signs in through the service. On failure the state is anonymous and
// the service's error is returned unchanged.
func (s *State) Login(ctx context.Context, credentials auth.Credentials) error {
	return s.run(func() error {
		_, err := s.svc.Login(ctx, credentials)
		return err
	})
}

// Signup behaves like Login.
func (s *State) Signup(ctx context.Context, request auth.SignupRequest) error {
	return s.run(func() error {
		_, err := s.svc.Signup(ctx, request)
		return err
	})
}

// SignOut always ends anonymous.
func (s *State) SignOut(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	if err := s.svc.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("authstate: sign out failed")
	}
	s.finish(false)
	return nil
}

// RefreshAuth re-reads the session store, for use after something else
// wrote it.
func (s *State) RefreshAuth() error {
	s.lock.Lock()
	if !s.initialized {
		s.lock.Unlock()
		return ErrNotInitialized
	}
	s.loadLocked()
	s.lock.Unlock()

	s.notify()
	return nil
}

func (s *State) run(op func() error) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := op()
	s.finish(err == nil)
	return err
}

func (s *State) begin() error {
	s.lock.Lock()
	if !s.initialized {
		s.lock.Unlock()
		return ErrNotInitialized
	}
	s.pending++
	s.lock.Unlock()

	s.notify()
	return nil
}

// finish reloads from storage when ok, otherwise resets to anonymous.
func (s *State) finish(ok bool) {
	s.lock.Lock()
	if s.pending > 0 {
		s.pending--
	}
	if !s.initialized {
		// torn down mid-flight
		s.lock.Unlock()
		return
	}
	if ok {
		s.loadLocked()
	} else {
		s.user = nil
		s.authed = false
	}
	s.lock.Unlock()

	s.notify()
}

func (s *State) loadLocked() {
	s.user = s.svc.StoredUser()
	s.authed = s.svc.IsAuthenticated()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		User:            s.user.Clone(),
		IsAuthenticated: s.authed,
		IsLoading:       s.pending > 0,
	}
}

// notify calls listeners outside the lock, in subscription order.
func (s *State) notify() {
	s.lock.RLock()
	snap := s.snapshotLocked()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.lock.RUnlock()

	for _, l := range listeners {
		own := snap
		own.User = snap.User.Clone()
		l(own)
	}
}
