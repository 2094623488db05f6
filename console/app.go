// Package console wires the session store, auth service, auth state and
// catalog facade together for the operator CLI.
package console

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/travelbook/admin-console/auth"
	"github.com/travelbook/admin-console/authstate"
	"github.com/travelbook/admin-console/catalog"
	"github.com/travelbook/admin-console/httpclient"
	"github.com/travelbook/admin-console/internal/config"
	apperrors "github.com/travelbook/admin-console/internal/errors"
	"github.com/travelbook/admin-console/sessions"
	"github.com/travelbook/admin-console/sessions/filestore"
	"github.com/travelbook/admin-console/sessions/memstore"
	"github.com/travelbook/admin-console/sessions/redisstore"
	"github.com/travelbook/admin-console/token"
)

// App is one console process: one session, one auth state.
type App struct {
	cfg     config.Config
	Store   *sessions.Store
	Service *auth.Service
	State   *authstate.State
	// api is the general client; its bearer is set explicitly before catalog
	// calls and a 401 clears the stored session.
	api     *httpclient.Client
	Catalog *catalog.Facade

	backend sessions.Backend
	closers []func() error
}

// AppOption defines a function type to modify the App instance.
type AppOption func(*App)

// WithBackend skips backend selection and uses b.
func WithBackend(b sessions.Backend) AppOption {
	return func(a *App) {
		a.backend = b
	}
}

// New opens the configured session backend and initializes auth state from it.
func New(ctx context.Context, cfg config.Config, options ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, errors.New("[console.New] config is required")
	}
	a := &App{cfg: cfg}
	for _, opt := range options {
		opt(a)
	}

	if a.backend == nil {
		backend, closer, err := OpenBackend(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "[console.New] OpenBackend")
		}
		a.backend = backend
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	var err error
	if a.Store, err = sessions.NewStore(a.backend); err != nil {
		return nil, errors.Wrap(err, "[console.New] sessions.NewStore")
	}
	if a.Service, err = auth.NewService(a.Store,
		auth.WithBaseURL(cfg.GetAPIBaseURL()),
		auth.WithTimeout(cfg.GetRequestTimeout()),
	); err != nil {
		return nil, errors.Wrap(err, "[console.New] auth.NewService")
	}
	if a.State, err = authstate.New(a.Service); err != nil {
		return nil, errors.Wrap(err, "[console.New] authstate.New")
	}
	store := a.Store
	if a.api, err = httpclient.New(cfg.GetAPIBaseURL(),
		httpclient.WithTimeout(cfg.GetRequestTimeout()),
		httpclient.WithUnauthorizedHandler(func() { store.ClearAll() }),
	); err != nil {
		return nil, errors.Wrap(err, "[console.New] httpclient.New")
	}
	a.Catalog = catalog.NewFacade(a.api)

	a.State.Initialize()
	return a, nil
}

// OpenBackend builds the session backend named by the configuration. The
// returned closer is nil when the backend holds no resources.
func OpenBackend(ctx context.Context, cfg config.SessionConfig) (sessions.Backend, func() error, error) {
	switch kind := cfg.GetSessionBackend(); kind {
	case config.SessionBackendMemory:
		return memstore.New(), nil, nil
	case config.SessionBackendRedis:
		store, err := redisstore.Dial(ctx, cfg.GetRedisURL(),
			redisstore.WithPrefix(cfg.GetRedisPrefix()),
			redisstore.WithTTL(cfg.GetRedisTTL()),
			redisstore.WithOpTimeout(cfg.GetRedisOpTimeout()),
		)
		if err != nil {
			return nil, nil, errors.Wrap(err, "[OpenBackend] redisstore.Dial")
		}
		return store, store.Close, nil
	default:
		var opts []filestore.Option
		if pass := cfg.GetSessionPassphrase(); pass != "" {
			opts = append(opts, filestore.WithPassphrase(pass))
		}
		store, err := filestore.New(cfg.GetSessionFile(), opts...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "[OpenBackend] filestore.New")
		}
		return store, nil, nil
	}
}

// authorizeCatalog copies the stored access token onto the general client.
func (a *App) authorizeCatalog() bool {
	tok := a.Service.StoredToken()
	if tok == "" {
		a.api.RemoveAuthToken()
		return false
	}
	a.api.SetAuthToken(tok)
	return true
}

// Verifier builds a signature verifier from the OIDC settings.
func (a *App) Verifier(ctx context.Context) (*token.Verifier, error) {
	issuer := a.cfg.GetOIDCIssuer()
	if issuer == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "[App.Verifier] CONSOLE_OIDC_ISSUER is not set")
	}
	var opts []token.VerifierOption
	if audience := a.cfg.GetOIDCAudience(); audience != "" {
		opts = append(opts, token.WithAudience(audience))
	}
	return token.NewVerifier(ctx, issuer, a.cfg.GetOIDCJWKSURL(), opts...)
}

// Close tears down auth state and releases the backend.
func (a *App) Close() error {
	a.State.Teardown()
	var first error
	for _, closer := range a.closers {
		if err := closer(); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		log.Warn().Err(first).Msg("console: close failed")
	}
	return first
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
