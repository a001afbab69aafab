package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

func TestHandleUserCodeInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTenant(t, "acme")

	t.Run("unknown code", func(t *testing.T) {
		res, err := env.svc.HandleUserCodeInput(ctx, "never-issued")
		require.NoError(t, err)
		require.Equal(t, domain.ECDeviceCodeNotFound, res.Error.Code)
	})

	t.Run("expired code", func(t *testing.T) {
		data, userCode, err := env.svc.StartDeviceAuthorization(ctx, "cli", "acme")
		require.NoError(t, err)

		env.svc.Now = func() time.Time { return data.ExpiresAt.Add(time.Minute) }
		defer func() { env.svc.Now = nil }()

		res, err := env.svc.HandleUserCodeInput(ctx, userCode)
		require.NoError(t, err)
		require.Equal(t, domain.ECDeviceCodeExpired, res.Error.Code)
	})

	t.Run("already resolved code", func(t *testing.T) {
		data, userCode, err := env.svc.StartDeviceAuthorization(ctx, "cli", "acme")
		require.NoError(t, err)

		u := env.createUser(t, "acme", "owner@acme.example", "pw", nil)
		require.NoError(t, env.svc.ApproveDeviceAuthorization(ctx, data.ID, u.ID))

		res, err := env.svc.HandleUserCodeInput(ctx, userCode)
		require.NoError(t, err)
		require.Equal(t, domain.ECDeviceCodeResolved, res.Error.Code)
	})

	t.Run("pending code starts the binding flow", func(t *testing.T) {
		data, userCode, err := env.svc.StartDeviceAuthorization(ctx, "cli", "acme")
		require.NoError(t, err)

		res, err := env.svc.HandleUserCodeInput(ctx, userCode)
		require.NoError(t, err)
		require.Nil(t, res.Error)
		require.Equal(t, domain.StateEnterEmail, res.State.Name)
		require.Equal(t, data.ID, res.State.PreAuthToken)

		states := env.listStates(t, res.State.SessionToken)
		require.Len(t, states, 3)
		require.Equal(t, domain.StateEnterPassword, states[1].Name)
		require.Equal(t, domain.StateRedirectToApp, states[2].Name)
	})
}

func TestDeviceBindingFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	user := env.createUser(t, "acme", "dev@acme.example", "correct horse battery", nil)

	data, userCode, err := env.svc.StartDeviceAuthorization(ctx, "cli", "acme")
	require.NoError(t, err)

	res, err := env.svc.HandleUserCodeInput(ctx, userCode)
	require.NoError(t, err)
	session := res.State.SessionToken

	// Bind the identity by email, then prove it with the password.
	res, err = env.svc.HandleEmailInput(ctx, user.Email, session)
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateEnterPassword, res.State.Name)
	require.Equal(t, user.ID, res.State.UserID)

	res, err = env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "", session, RecoveryContext{})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateRedirectToApp, res.State.Name)
	require.NotEmpty(t, res.AccessToken)

	// Completing the flow approves the grant it was bound to.
	approved, err := env.store.DeviceCodes().GetDeviceCodeByID(ctx, data.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DeviceApproved, approved.Status)
	require.Equal(t, user.ID, approved.UserID)

	// A resolved grant cannot be approved twice.
	require.Error(t, env.svc.ApproveDeviceAuthorization(ctx, data.ID, user.ID))
}

func TestHandleEmailInputUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTenant(t, "acme")

	_, userCode, err := env.svc.StartDeviceAuthorization(ctx, "cli", "acme")
	require.NoError(t, err)
	res, err := env.svc.HandleUserCodeInput(ctx, userCode)
	require.NoError(t, err)
	session := res.State.SessionToken

	// Unknown emails advance without binding; the endpoint must not reveal
	// which accounts exist.
	res, err = env.svc.HandleEmailInput(ctx, "ghost@acme.example", session)
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateEnterPassword, res.State.Name)
	require.Empty(t, res.State.UserID)
}
