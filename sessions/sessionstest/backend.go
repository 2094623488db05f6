// Package sessionstest holds the behaviour every sessions.Backend must share.
package sessionstest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/travelbook/admin-console/sessions"
)

// RunBackendTests exercises newBackend against the Backend contract and the
// Store round-trip properties built on top of it.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) sessions.Backend) {
	t.Run("missing key is ErrNotFound", func(t *testing.T) {
		_, err := newBackend(t).Read("nope")
		require.ErrorIs(t, err, sessions.ErrNotFound)
	})

	t.Run("write then read", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("k", []byte(`{"a":1}`)))
		got, err := b.Read("k")
		require.NoError(t, err)
		require.JSONEq(t, `{"a":1}`, string(got))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("k", []byte(`"v"`)))
		require.NoError(t, b.Delete("k"))
		require.NoError(t, b.Delete("k"))
		_, err := b.Read("k")
		require.ErrorIs(t, err, sessions.ErrNotFound)
	})

	t.Run("store round trip", func(t *testing.T) {
		store, err := sessions.NewStore(newBackend(t))
		require.NoError(t, err)

		values := []any{
			map[string]any{"nested": map[string]any{"list": []any{"a", float64(2), true, nil}}},
			[]any{"hotel", "bus"},
			"plain string",
			float64(42),
			true,
		}
		for i, v := range values {
			require.True(t, store.Set("value", v), "case %d", i)
			var got any
			require.True(t, store.Get("value", &got), "case %d", i)
			require.Equal(t, v, got, "case %d", i)
		}
	})

	t.Run("clear all", func(t *testing.T) {
		store, err := sessions.NewStore(newBackend(t))
		require.NoError(t, err)

		require.True(t, store.SaveAuthData(sessions.AuthData{AccessToken: "a", RefreshToken: "r"}))
		require.True(t, store.SaveUser(sessions.UserProfile{Username: "alice"}))
		require.True(t, store.SaveRoles([]string{"admin"}))

		require.True(t, store.ClearAll())
		require.Nil(t, store.AuthData())
		require.Nil(t, store.User())
		require.Empty(t, store.Roles())
		require.True(t, store.ClearAll())
	})
}
