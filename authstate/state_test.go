package authstate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/auth"
	"github.com/travelbook/admin-console/authstate"
	"github.com/travelbook/admin-console/internal/testutil/backend"
	"github.com/travelbook/admin-console/sessions"
	"github.com/travelbook/admin-console/sessions/memstore"
)

const (
	testUsername = "alice"
	testPassword = "wonderland1"
)

type testFixture struct {
	srv     *backend.Server
	store   *sessions.Store
	service *auth.Service
	state   *authstate.State
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{srv: backend.New(t)}
	f.srv.AddUser(backend.User{
		Username: testUsername,
		Password: testPassword,
		Name:     "Alice Liddell",
		Email:    "alice@example.com",
		Clients:  []string{"hotel"},
		Roles:    []string{"admin"},
	})

	var err error
	f.store, err = sessions.NewStore(memstore.New())
	require.NoError(t, err)
	f.service, err = auth.NewService(f.store, auth.WithBaseURL(f.srv.URL()))
	require.NoError(t, err)
	f.state, err = authstate.New(f.service)
	require.NoError(t, err)
	t.Cleanup(f.state.Teardown)
	return f
}

var credentials = auth.Credentials{Username: testUsername, Password: testPassword}

// recorder collects every snapshot a listener receives.
type recorder struct {
	lock  sync.Mutex
	snaps []authstate.Snapshot
}

func (r *recorder) listen(s authstate.Snapshot) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []authstate.Snapshot {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]authstate.Snapshot(nil), r.snaps...)
}

// failingSignOut wraps a service whose server-side sign out errors.
type failingSignOut struct {
	*auth.Service
}

func (f failingSignOut) SignOut(ctx context.Context) error {
	_ = f.Service.SignOut(ctx)
	return errors.New("network down")
}

func TestNewRequiresAuthenticator(t *testing.T) {
	_, err := authstate.New(nil)
	require.Error(t, err)
}

func TestOperationsBeforeInitialize(t *testing.T) {
	f := setupTestFixture(t)

	require.ErrorIs(t, f.state.Login(context.Background(), credentials), authstate.ErrNotInitialized)
	require.ErrorIs(t, f.state.Signup(context.Background(), auth.SignupRequest{}), authstate.ErrNotInitialized)
	require.ErrorIs(t, f.state.SignOut(context.Background()), authstate.ErrNotInitialized)
	require.ErrorIs(t, f.state.RefreshAuth(), authstate.ErrNotInitialized)
	require.Zero(t, f.srv.Calls(api.PathSignIn))
}

func TestInitializeReadsStorageWithoutNetwork(t *testing.T) {
	f := setupTestFixture(t)
	require.True(t, f.store.SaveAuthData(sessions.AuthData{AccessToken: "a.b.c", Username: "zoe"}))
	require.True(t, f.store.SaveUser(sessions.UserProfile{Username: "zoe", Name: "Zoe"}))

	f.state.Initialize()

	snap := f.state.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.False(t, snap.IsLoading)
	require.Equal(t, "Zoe", snap.User.Name)
	for _, path := range []string{api.PathSignIn, api.PathRefresh, api.PathProfile} {
		require.Zero(t, f.srv.Calls(path))
	}
}

func TestInitializeEmptyStorageIsAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()

	snap := f.state.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Nil(t, snap.User)
}

func TestLoginReadsProfileFromStorage(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()
	rec := &recorder{}
	f.state.Subscribe(rec.listen)

	require.NoError(t, f.state.Login(context.Background(), credentials))

	snap := f.state.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.False(t, snap.IsLoading)
	require.Equal(t, f.service.StoredUser(), snap.User)
	require.Equal(t, []string{"admin"}, snap.User.Roles)

	snaps := rec.all()
	require.Len(t, snaps, 2)
	require.True(t, snaps[0].IsLoading)
	require.False(t, snaps[0].IsAuthenticated)
	require.False(t, snaps[1].IsLoading)
	require.True(t, snaps[1].IsAuthenticated)
}

func TestLoginFailureResetsToAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()
	require.NoError(t, f.state.Login(context.Background(), credentials))

	err := f.state.Login(context.Background(), auth.Credentials{Username: testUsername, Password: "nope"})
	require.EqualError(t, err, auth.MsgBadCredentials)

	snap := f.state.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.False(t, snap.IsLoading)
	require.Nil(t, snap.User)
}

func TestSignupReadsProfileFromStorage(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()

	require.NoError(t, f.state.Signup(context.Background(), auth.SignupRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "builder123",
		Name:     "Bob",
	}))
	snap := f.state.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, "bob", snap.User.Username)

	err := f.state.Signup(context.Background(), auth.SignupRequest{Username: "bob", Email: "bob@example.com", Password: "builder123"})
	require.EqualError(t, err, auth.MsgSignupConflict)
	require.False(t, f.state.Snapshot().IsAuthenticated)
}

func TestSignOutAlwaysAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	state, err := authstate.New(failingSignOut{f.service})
	require.NoError(t, err)
	state.Initialize()
	t.Cleanup(state.Teardown)

	require.NoError(t, state.Login(context.Background(), credentials))
	require.True(t, state.Snapshot().IsAuthenticated)

	require.NoError(t, state.SignOut(context.Background()))
	snap := state.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Nil(t, snap.User)
	require.False(t, f.service.IsAuthenticated())
}

func TestRefreshAuthPicksUpOutOfBandWrites(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()
	require.NoError(t, f.state.Login(context.Background(), credentials))

	user := f.service.StoredUser()
	user.Name = "Alice P. Liddell"
	require.True(t, f.store.SaveUser(*user))
	require.Equal(t, "Alice Liddell", f.state.Snapshot().User.Name)

	require.NoError(t, f.state.RefreshAuth())
	require.Equal(t, "Alice P. Liddell", f.state.Snapshot().User.Name)

	f.store.ClearAll()
	require.NoError(t, f.state.RefreshAuth())
	require.False(t, f.state.Snapshot().IsAuthenticated)
}

func TestSnapshotUserIsACopy(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()
	require.NoError(t, f.state.Login(context.Background(), credentials))

	snap := f.state.Snapshot()
	snap.User.Name = "mallory"
	snap.User.Roles[0] = "root"

	again := f.state.Snapshot()
	require.Equal(t, "Alice Liddell", again.User.Name)
	require.Equal(t, []string{"admin"}, again.User.Roles)
}

func TestUnsubscribeAndTeardown(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()

	kept, dropped := &recorder{}, &recorder{}
	f.state.Subscribe(kept.listen)
	unsubscribe := f.state.Subscribe(dropped.listen)
	unsubscribe()

	require.NoError(t, f.state.RefreshAuth())
	require.Len(t, kept.all(), 1)
	require.Empty(t, dropped.all())

	require.NoError(t, f.state.Login(context.Background(), credentials))
	f.state.Teardown()
	require.False(t, f.state.Snapshot().IsAuthenticated)
	require.ErrorIs(t, f.state.RefreshAuth(), authstate.ErrNotInitialized)

	// storage survives teardown
	f.state.Initialize()
	require.True(t, f.state.Snapshot().IsAuthenticated)
	require.Len(t, kept.all(), 3)
}

func TestConcurrentLoginsSettle(t *testing.T) {
	f := setupTestFixture(t)
	f.state.Initialize()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.state.Login(context.Background(), credentials)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		snap := f.state.Snapshot()
		return snap.IsAuthenticated && !snap.IsLoading
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 5, f.srv.Calls(api.PathSignIn))
}
