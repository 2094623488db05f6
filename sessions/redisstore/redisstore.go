// Package redisstore keeps session records in Redis so several console
// processes (or a backend-for-frontend) can share one login.
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/travelbook/admin-console/sessions"
)

var _ sessions.Backend = (*Store)(nil)

const (
	defaultPrefix    = "console:session:"
	defaultOpTimeout = 3 * time.Second
)

// Store is a sessions.Backend over a Redis client.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	opTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires records after ttl. Zero keeps them until removed.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithOpTimeout bounds each Redis round-trip.
func WithOpTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.opTimeout = timeout
		}
	}
}

func New(client redis.UniversalClient, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	s := &Store{
		client:    client,
		prefix:    defaultPrefix,
		opTimeout: defaultOpTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Dial connects to url (redis://host:port/db) and checks the connection.
func Dial(ctx context.Context, url string, options ...Option) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.Dial] parse redis URL")
	}
	opts.ContextTimeoutEnabled = true
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[redisstore.Dial] ping")
	}
	return New(client, options...)
}

func (s *Store) Read(key string) ([]byte, error) {
	ctx, cancel := s.context()
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.Read] get")
	}
	return value, nil
}

func (s *Store) Write(key string, value []byte) error {
	ctx, cancel := s.context()
	defer cancel()
	return errors.Wrap(s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(), "[redisstore.Write] set")
}

func (s *Store) Delete(key string) error {
	ctx, cancel := s.context()
	defer cancel()
	return errors.Wrap(s.client.Del(ctx, s.prefix+key).Err(), "[redisstore.Delete] del")
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}
