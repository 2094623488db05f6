package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/auth"
	"github.com/travelbook/admin-console/httpclient"
	apperrors "github.com/travelbook/admin-console/internal/errors"
)

func TestKindFor(t *testing.T) {
	tests := []struct {
		op     auth.Operation
		status int
		want   auth.Kind
	}{
		{auth.OpLogin, http.StatusUnauthorized, auth.KindBadCredentials},
		{auth.OpLogin, http.StatusUnprocessableEntity, auth.KindInvalidInput},
		{auth.OpLogin, http.StatusTooManyRequests, auth.KindRateLimited},
		{auth.OpLogin, http.StatusInternalServerError, auth.KindServer},
		{auth.OpLogin, http.StatusServiceUnavailable, auth.KindServer},
		{auth.OpLogin, http.StatusBadRequest, auth.KindUnknown},
		{auth.OpLogin, http.StatusConflict, auth.KindUnknown},
		{auth.OpSignup, http.StatusBadRequest, auth.KindBadRequest},
		{auth.OpSignup, http.StatusConflict, auth.KindConflict},
		{auth.OpSignup, http.StatusUnprocessableEntity, auth.KindInvalidInput},
		{auth.OpSignup, http.StatusBadGateway, auth.KindServer},
		{auth.OpSignup, http.StatusUnauthorized, auth.KindUnknown},
		{auth.OpRefresh, http.StatusUnauthorized, auth.KindSessionExpired},
		{auth.OpProfile, http.StatusUnauthorized, auth.KindSessionExpired},
		{auth.OpRefresh, http.StatusTooManyRequests, auth.KindRateLimited},
		{auth.OpLogout, http.StatusNotFound, auth.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+http.StatusText(tt.status), func(t *testing.T) {
			require.Equal(t, tt.want, auth.KindFor(tt.op, tt.status))
		})
	}
}

func TestMessageFor(t *testing.T) {
	require.Equal(t, "The username or password you entered is incorrect. Please try again.",
		auth.MessageFor(auth.OpLogin, auth.KindBadCredentials))
	require.Equal(t, auth.MsgLoginRateLimit, auth.MessageFor(auth.OpLogin, auth.KindRateLimited))
	require.Equal(t, auth.MsgRateLimited, auth.MessageFor(auth.OpRefresh, auth.KindRateLimited))
	require.Equal(t, auth.MsgSignupConflict, auth.MessageFor(auth.OpSignup, auth.KindConflict))
	require.Equal(t, auth.MsgSignupInvalid, auth.MessageFor(auth.OpSignup, auth.KindInvalidInput))
	require.Equal(t, auth.MsgLoginInvalid, auth.MessageFor(auth.OpLogin, auth.KindInvalidInput))
	require.Equal(t, auth.MsgServer, auth.MessageFor(auth.OpSignup, auth.KindServer))
	require.Equal(t, auth.MsgTimeout, auth.MessageFor(auth.OpLogin, auth.KindTimeout))
	require.Equal(t, auth.MsgNoResponse, auth.MessageFor(auth.OpSignup, auth.KindNoResponse))
	require.Equal(t, auth.MsgSessionExpired, auth.MessageFor(auth.OpProfile, auth.KindSessionExpired))
	require.Equal(t, auth.MsgGeneric, auth.MessageFor(auth.OpLogin, auth.KindUnknown))
	require.Equal(t, auth.MsgGeneric, auth.MessageFor(auth.OpLogin, auth.KindConflict))
}

func TestClassify(t *testing.T) {
	require.Nil(t, auth.Classify(auth.OpLogin, nil))

	t.Run("status with table entry ignores server message", func(t *testing.T) {
		err := auth.Classify(auth.OpLogin, &httpclient.StatusError{StatusCode: 401, Message: "Invalid credentials"})
		require.Equal(t, auth.KindBadCredentials, err.Kind)
		require.Equal(t, 401, err.Status)
		require.Equal(t, auth.MsgBadCredentials, err.Error())
	})

	t.Run("unclassified status uses server message", func(t *testing.T) {
		err := auth.Classify(auth.OpLogin, &httpclient.StatusError{StatusCode: 403, Message: "Account suspended"})
		require.Equal(t, auth.KindUnknown, err.Kind)
		require.Equal(t, "Account suspended", err.Error())
	})

	t.Run("unclassified status without message is generic", func(t *testing.T) {
		err := auth.Classify(auth.OpSignup, &httpclient.StatusError{StatusCode: 404})
		require.Equal(t, auth.MsgGeneric, err.Error())
	})

	t.Run("transport errors", func(t *testing.T) {
		timeout := auth.Classify(auth.OpLogin, &httpclient.TransportError{Timeout: true, Err: context.DeadlineExceeded})
		require.Equal(t, auth.KindTimeout, timeout.Kind)
		require.Equal(t, auth.MsgTimeout, timeout.Error())
		require.Zero(t, timeout.Status)

		refused := auth.Classify(auth.OpLogin, &httpclient.TransportError{Err: errors.New("connection refused")})
		require.Equal(t, auth.KindNoResponse, refused.Kind)
		require.Equal(t, auth.MsgNoResponse, refused.Error())
	})

	t.Run("envelope failure keeps server message", func(t *testing.T) {
		err := auth.Classify(auth.OpLogin, &api.EnvelopeError{Message: "account locked"})
		require.Equal(t, auth.KindUnexpectedResponse, err.Kind)
		require.Equal(t, "account locked", err.Error())
		require.ErrorIs(t, err, apperrors.ErrUnexpectedResponse)

		bare := auth.Classify(auth.OpLogin, &api.EnvelopeError{})
		require.Equal(t, auth.MsgGeneric, bare.Error())
	})

	t.Run("storage and session sentinels", func(t *testing.T) {
		storage := auth.Classify(auth.OpSignup, apperrors.ErrStorage)
		require.Equal(t, auth.KindStorage, storage.Kind)
		require.Equal(t, auth.MsgGeneric, storage.Error())
		require.Equal(t, auth.MsgGeneric, auth.Classify(auth.OpLogin, apperrors.ErrStorage).Error())
		require.Equal(t, auth.KindSessionExpired, auth.Classify(auth.OpRefresh, apperrors.ErrNoRefreshToken).Kind)
	})

	t.Run("already classified passes through", func(t *testing.T) {
		original := &auth.Error{Op: auth.OpLogin, Kind: auth.KindConflict, Message: "x"}
		require.Same(t, original, auth.Classify(auth.OpRefresh, original))
	})

	t.Run("unknown error is generic", func(t *testing.T) {
		err := auth.Classify(auth.OpLogout, errors.New("boom"))
		require.Equal(t, auth.KindUnknown, err.Kind)
		require.Equal(t, auth.MsgGeneric, err.Error())
	})
}

func TestCredentialsValidate(t *testing.T) {
	require.NoError(t, auth.Credentials{Username: "alice", Password: "pw"}.Validate())
	require.Error(t, auth.Credentials{Username: "  ", Password: "pw"}.Validate())
	require.Error(t, auth.Credentials{Username: "alice"}.Validate())

	valid := auth.SignupRequest{Username: "bob", Email: "bob@example.com", Password: "longenough", Clients: []string{"bus"}}
	require.NoError(t, valid.Validate())

	badEmail := valid
	badEmail.Email = "bob"
	require.Error(t, badEmail.Validate())

	serverChecked := valid
	serverChecked.Password = "pw"
	serverChecked.Username = "bo"
	serverChecked.Phone = "0123 456"
	require.NoError(t, serverChecked.Validate())

	noPassword := valid
	noPassword.Password = ""
	require.Error(t, noPassword.Validate())

	blankUsername := valid
	blankUsername.Username = " "
	require.Error(t, blankUsername.Validate())
}
