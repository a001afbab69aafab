package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

func TestAcceptTermsAndConditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTenant(t, "acme")

	t.Run("declining kills the session", func(t *testing.T) {
		u := env.createUser(t, "acme", "no@acme.example", "pw", nil)
		env.seedFlow(t, "sess-no", "acme", u.ID, domain.StateAcceptTerms, domain.StateRedirectToPortal)

		res, err := env.svc.AcceptTermsAndConditions(ctx, false, "sess-no", "")
		require.NoError(t, err)
		require.Equal(t, domain.ECTermsDeclined, res.Error.Code)
		require.Equal(t, domain.StateError, res.State.Name)

		// The ERROR state is persisted; the flow is dead, not retryable.
		states := env.listStates(t, "sess-no")
		require.Equal(t, domain.StateError, states[0].Name)

		res, err = env.svc.AcceptTermsAndConditions(ctx, true, "sess-no", "")
		require.NoError(t, err)
		require.Equal(t, domain.ECWrongStep, res.Error.Code)
	})

	t.Run("accepting records and advances", func(t *testing.T) {
		u := env.createUser(t, "acme", "yes@acme.example", "pw", nil)
		env.seedFlow(t, "sess-yes", "acme", u.ID, domain.StateAcceptTerms, domain.StateRedirectToPortal)

		res, err := env.svc.AcceptTermsAndConditions(ctx, true, "sess-yes", "")
		require.NoError(t, err)
		require.Nil(t, res.Error)
		require.Equal(t, domain.StateRedirectToPortal, res.State.Name)
		require.NotEmpty(t, res.AccessToken)
	})
}

func TestValidateTOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTenant(t, "acme")

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test-iam", AccountName: "mfa@acme.example"})
	require.NoError(t, err)
	secret := key.Secret()

	user := env.createUser(t, "acme", "mfa@acme.example", "pw", func(u *domain.User) {
		u.MFASecret = &secret
	})

	t.Run("invalid code leaves the step due", func(t *testing.T) {
		env.seedFlow(t, "sess-bad", "acme", user.ID, domain.StateValidateTOTP, domain.StateRedirectToPortal)

		res, err := env.svc.ValidateTOTP(ctx, "000000", "sess-bad")
		require.NoError(t, err)
		require.Equal(t, domain.ECInvalidCredentials, res.Error.Code)
		require.Equal(t, domain.StateValidateTOTP, res.State.Name)

		states := env.listStates(t, "sess-bad")
		require.Equal(t, domain.StatusIncomplete, states[0].Status)
	})

	t.Run("valid code advances to completion", func(t *testing.T) {
		env.seedFlow(t, "sess-ok", "acme", user.ID, domain.StateValidateTOTP, domain.StateRedirectToPortal)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		res, err := env.svc.ValidateTOTP(ctx, code, "sess-ok")
		require.NoError(t, err)
		require.Nil(t, res.Error)
		require.Equal(t, domain.StateRedirectToPortal, res.State.Name)
		require.NotEmpty(t, res.AccessToken)
	})

	t.Run("user without enrolled secret fails softly", func(t *testing.T) {
		bare := env.createUser(t, "acme", "nosecret@acme.example", "pw", nil)
		env.seedFlow(t, "sess-none", "acme", bare.ID, domain.StateValidateTOTP, domain.StateRedirectToPortal)

		res, err := env.svc.ValidateTOTP(ctx, "123456", "sess-none")
		require.NoError(t, err)
		require.Equal(t, domain.ECInvalidCredentials, res.Error.Code)
	})
}

func TestStartAuthentication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTenant(t, "acme")

	res, err := env.svc.StartAuthentication(ctx, "acme", "https://app.example/return")
	require.NoError(t, err)
	require.Equal(t, domain.StateEnterPassword, res.State.Name)
	require.NotEmpty(t, res.State.SessionToken)

	states := env.listStates(t, res.State.SessionToken)
	require.Len(t, states, 2)
	require.Equal(t, domain.StateRedirectToPortal, states[1].Name)
	require.Equal(t, "https://app.example/return", states[0].ReturnToURI)
}
