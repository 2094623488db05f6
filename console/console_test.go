package console_test

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/auth"
	"github.com/travelbook/admin-console/console"
	"github.com/travelbook/admin-console/httpclient"
	"github.com/travelbook/admin-console/internal/config"
	apperrors "github.com/travelbook/admin-console/internal/errors"
	"github.com/travelbook/admin-console/internal/testutil/backend"
	"github.com/travelbook/admin-console/sessions/filestore"
	"github.com/travelbook/admin-console/sessions/memstore"
)

const (
	testUsername = "alice"
	testPassword = "wonderland1"
)

type testFixture struct {
	srv *backend.Server
	app *console.App
}

func setupTestFixture(t *testing.T, options ...console.AppOption) *testFixture {
	t.Helper()

	srv := backend.New(t)
	srv.AddUser(backend.User{
		Username: testUsername,
		Password: testPassword,
		Name:     "Alice Liddell",
		Email:    "alice@example.com",
		Clients:  []string{"hotel", "bus"},
		Roles:    []string{"hotel_manager"},
	})
	t.Setenv("CONSOLE_API_BASE_URL", srv.URL())
	t.Setenv("CONSOLE_OIDC_ISSUER", "")
	t.Setenv(console.PasswordEnvVar, "")

	if len(options) == 0 {
		options = []console.AppOption{console.WithBackend(memstore.New())}
	}
	app, err := console.New(context.Background(), config.New(), options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return &testFixture{srv: srv, app: app}
}

func (f *testFixture) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := console.NewRootCommand(f.app)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--color=false"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	out, err := f.exec(t, "login", "-u", testUsername, "-p", testPassword)
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as alice")
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := console.New(context.Background(), nil)
	require.Error(t, err)
}

func TestLoginStatusLogout(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.exec(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in")

	f.login(t)

	out, err = f.exec(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as alice (Alice Liddell <alice@example.com>)")
	require.Contains(t, out, "Clients: hotel, bus")
	require.Contains(t, out, "Roles:   hotel_manager")
	require.Contains(t, out, "Token expires")

	out, err = f.exec(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")
	require.Equal(t, 1, f.srv.Calls(api.PathSignOut))

	out, err = f.exec(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in")
}

func TestLoginReadsPasswordFromEnvironment(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv(console.PasswordEnvVar, testPassword)

	out, err := f.exec(t, "login", "-u", testUsername)
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as alice")
}

func TestLoginFailureShowsDisplayMessage(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec(t, "login", "-u", testUsername, "-p", "wrong")
	require.EqualError(t, err, auth.MsgBadCredentials)
	require.False(t, f.app.State.Snapshot().IsAuthenticated)
}

func TestSignupCommand(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.exec(t, "signup", "-u", "bob", "-p", "builder123", "--email", "bob@example.com", "--name", "Bob", "--client", "bus")
	require.NoError(t, err)
	require.Contains(t, out, "Account created, signed in as bob")
	require.Equal(t, []string{"bus"}, f.app.State.Snapshot().User.Clients)
}

func TestRefreshCommand(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	before := f.app.Service.StoredToken()

	out, err := f.exec(t, "refresh")
	require.NoError(t, err)
	require.Contains(t, out, "Token refreshed")
	require.NotEqual(t, before, f.app.Service.StoredToken())

	f.srv.Fail(api.PathRefresh, 500, "")
	_, err = f.exec(t, "refresh")
	require.EqualError(t, err, auth.MsgServer)
	require.False(t, f.app.State.Snapshot().IsAuthenticated)
}

func TestWhoami(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec(t, "whoami")
	require.ErrorIs(t, err, console.ErrNotSignedIn)

	f.login(t)
	out, err := f.exec(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, `"username": "alice"`)
	require.Contains(t, out, `"hotel_manager"`)

	_, err = f.exec(t, "whoami", "--verify")
	require.ErrorContains(t, err, "CONSOLE_OIDC_ISSUER")
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestProfileCommand(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	out, err := f.exec(t, "profile")
	require.NoError(t, err)
	require.Contains(t, out, "Profile updated: Alice Liddell <alice@example.com>")
	require.Equal(t, 1, f.srv.Calls(api.PathProfile))
}

func TestCatalogCommands(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec(t, "catalog", "list", "hotels")
	require.ErrorIs(t, err, console.ErrNotSignedIn)

	f.login(t)

	seed, err := httpclient.New(f.srv.URL())
	require.NoError(t, err)
	seed.SetAuthToken("seed")
	_, err = seed.Post(context.Background(), api.PathHotels, map[string]any{"name": "Grand", "city": "Lisbon"})
	require.NoError(t, err)
	_, err = seed.Post(context.Background(), api.PathHotels, map[string]any{"name": "Harbour", "city": "Porto"})
	require.NoError(t, err)

	out, err := f.exec(t, "catalog", "list", "hotels", "--filter", "city=Lisbon")
	require.NoError(t, err)
	require.Contains(t, out, "Grand")
	require.NotContains(t, out, "Harbour")
	require.Contains(t, out, "1 hotels")
	require.Equal(t, "Bearer "+f.app.Service.StoredToken(), f.srv.LastAuthorization(api.PathHotels))

	_, err = f.exec(t, "catalog", "list", "yachts")
	require.ErrorContains(t, err, "unknown resource")

	_, err = f.exec(t, "catalog", "list", "hotels", "--filter", "city")
	require.ErrorContains(t, err, "key=value")

	_, err = f.exec(t, "catalog", "get", "hotels", "missing")
	require.Equal(t, 404, httpclient.StatusCode(err))
}

func TestCatalogUnauthorizedEndsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.srv.Fail(api.PathHotels, http.StatusUnauthorized, "token expired")

	_, err := f.exec(t, "catalog", "list", "hotels")
	require.EqualError(t, err, auth.MsgSessionExpired)
	require.Equal(t, http.StatusUnauthorized, httpclient.StatusCode(err))
	require.False(t, f.app.Service.IsAuthenticated())
	require.False(t, f.app.State.Snapshot().IsAuthenticated)

	out, err := f.exec(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in")

	_, err = f.exec(t, "catalog", "list", "hotels")
	require.ErrorIs(t, err, console.ErrNotSignedIn)
}

func TestFileBackendSurvivesRestart(t *testing.T) {
	t.Setenv("CONSOLE_SESSION_BACKEND", "file")
	t.Setenv("CONSOLE_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("CONSOLE_SESSION_PASSPHRASE", "correct horse")

	first := setupTestFixture(t, console.AppOption(func(*console.App) {}))
	first.login(t)
	require.NoError(t, first.app.Close())

	second, err := console.New(context.Background(), config.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	snap := second.State.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, testUsername, snap.User.Username)
}

func TestOpenBackend(t *testing.T) {
	t.Setenv("CONSOLE_SESSION_BACKEND", "memory")
	b, closer, err := console.OpenBackend(context.Background(), config.New())
	require.NoError(t, err)
	require.Nil(t, closer)
	require.IsType(t, &memstore.Store{}, b)

	t.Setenv("CONSOLE_SESSION_BACKEND", "file")
	t.Setenv("CONSOLE_SESSION_FILE", filepath.Join(t.TempDir(), "s.json"))
	b, _, err = console.OpenBackend(context.Background(), config.New())
	require.NoError(t, err)
	require.IsType(t, &filestore.Store{}, b)

	t.Setenv("CONSOLE_SESSION_BACKEND", "redis")
	t.Setenv("CONSOLE_REDIS_URL", "not-a-redis-url")
	_, _, err = console.OpenBackend(context.Background(), config.New())
	require.Error(t, err)
}
