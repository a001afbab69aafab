package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/pkg/cryptox"
	"github.com/veridianhq/veridian/pkg/idx"
)

func TestAuthenticateUserWrongStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	user := env.createUser(t, "acme", "alice@acme.example", "correct horse battery", nil)
	env.seedFlow(t, "sess-1", "acme", user.ID, domain.StateValidateTOTP, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", "sess-1", RecoveryContext{})
	require.NoError(t, err)
	require.Equal(t, domain.ECWrongStep, res.Error.Code)
	require.Equal(t, domain.StateError, res.State.Name)

	// Wrong-step must not mutate the persisted flow.
	states := env.listStates(t, "sess-1")
	require.Len(t, states, 2)
	require.Equal(t, domain.StateValidateTOTP, states[0].Name)
	require.Equal(t, domain.StatusIncomplete, states[0].Status)
}

func TestAuthenticateUserAccountConditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createTenant(t, "acme")

	t.Run("unknown email throws not found", func(t *testing.T) {
		env.seedFlow(t, "sess-nf", "acme", "", domain.StateEnterPassword, domain.StateRedirectToPortal)
		_, err := env.svc.AuthenticateUser(ctx, "ghost@acme.example", "pw", "acme", "sess-nf", RecoveryContext{})
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("disabled user throws disabled", func(t *testing.T) {
		u := env.createUser(t, "acme", "off@acme.example", "pw", func(u *domain.User) { u.Enabled = false })
		env.seedFlow(t, "sess-dis", "acme", u.ID, domain.StateEnterPassword, domain.StateRedirectToPortal)
		_, err := env.svc.AuthenticateUser(ctx, u.Email, "pw", "acme", "sess-dis", RecoveryContext{})
		require.ErrorIs(t, err, ErrUserDisabled)
	})

	t.Run("locked user throws locked", func(t *testing.T) {
		u := env.createUser(t, "acme", "locked@acme.example", "pw", func(u *domain.User) { u.Locked = true })
		env.seedFlow(t, "sess-lock", "acme", u.ID, domain.StateEnterPassword, domain.StateRedirectToPortal)
		_, err := env.svc.AuthenticateUser(ctx, u.Email, "pw", "acme", "sess-lock", RecoveryContext{})
		require.ErrorIs(t, err, ErrUserLocked)
	})

	t.Run("deletion mark wins over other conditions", func(t *testing.T) {
		u := env.createUser(t, "acme", "gone@acme.example", "pw", func(u *domain.User) {
			u.MarkForDelete = true
			u.Enabled = false
			u.Locked = true
		})
		env.seedFlow(t, "sess-del", "acme", u.ID, domain.StateEnterPassword, domain.StateRedirectToPortal)
		_, err := env.svc.AuthenticateUser(ctx, u.Email, "pw", "acme", "sess-del", RecoveryContext{})
		require.ErrorIs(t, err, ErrUserDeleted)
	})
}

func TestAuthenticateUserInvalidPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	user := env.createUser(t, "acme", "alice@acme.example", "correct horse battery", nil)
	env.seedFlow(t, "sess-1", "acme", user.ID, domain.StateEnterPassword, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "wrong password", "acme", "sess-1", RecoveryContext{})
	require.NoError(t, err)
	require.Equal(t, domain.ECInvalidCredentials, res.Error.Code)
	require.Equal(t, domain.StateEnterPassword, res.State.Name)

	// The caller may retry; the step currently due is unchanged.
	states := env.listStates(t, "sess-1")
	require.Equal(t, domain.StatusIncomplete, states[0].Status)
	require.Equal(t, domain.StateEnterPassword, states[0].Name)
}

func TestAuthenticateUserCompletesLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	user := env.createUser(t, "acme", "alice@acme.example", "correct horse battery", nil)
	env.seedFlow(t, "sess-1", "acme", "", domain.StateEnterPassword, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", "sess-1", RecoveryContext{})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateRedirectToPortal, res.State.Name)
	require.NotEmpty(t, res.AccessToken)

	claims, err := env.signer.Verify(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, "acme", claims.TenantID)

	events := env.listEvents(t, "acme")
	require.Len(t, events, 1)
	require.Equal(t, domain.EventSuccessLogon, events[0].Kind)
	require.Equal(t, user.ID, events[0].UserID)

	// Password step is completed, redirect step carries the bound user.
	states := env.listStates(t, "sess-1")
	require.Len(t, states, 2)
	require.Equal(t, domain.StatusComplete, states[0].Status)
	require.Equal(t, user.ID, states[1].UserID)
}

func TestAuthenticateUserAdvancesMidFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	user := env.createUser(t, "acme", "alice@acme.example", "correct horse battery", nil)
	env.seedFlow(t, "sess-1", "acme", "", domain.StateEnterPassword, domain.StateValidateTOTP, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", "sess-1", RecoveryContext{})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateValidateTOTP, res.State.Name)
	require.Empty(t, res.AccessToken)

	// No completion yet: no event, exactly one INCOMPLETE row remains due.
	require.Empty(t, env.listEvents(t, "acme"))
	states := env.listStates(t, "sess-1")
	require.Len(t, states, 3)
	require.Equal(t, domain.StatusComplete, states[0].Status)
	require.Equal(t, domain.StatusIncomplete, states[1].Status)
}

func TestAuthenticateUserDuress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	duressHash, err := cryptox.HashPassword("help me quietly")
	require.NoError(t, err)
	user := env.createUser(t, "acme", "alice@acme.example", "correct horse battery", func(u *domain.User) {
		u.DuressPasswordHash = &duressHash
	})
	env.seedFlow(t, "sess-1", "acme", "", domain.StateEnterPassword, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "help me quietly", "acme", "sess-1", RecoveryContext{})
	require.NoError(t, err)
	require.Nil(t, res.Error)

	// The login still completes; the coerced user gets a working token.
	require.NotEmpty(t, res.AccessToken)
	require.Equal(t, domain.StateDuressLogon, res.State.Name)

	// But the recorded event is the silent alarm.
	events := env.listEvents(t, "acme")
	require.Len(t, events, 1)
	require.Equal(t, domain.EventDuressLogon, events[0].Kind)

	// The persisted next state carries the duress name.
	states := env.listStates(t, "sess-1")
	require.Equal(t, domain.StateDuressLogon, states[1].Name)
}

func TestAuthenticateUserRotationAttachesPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	user := env.createUser(t, "acme", "alice@acme.example", "correct horse battery", func(u *domain.User) {
		u.ForcePasswordReset = true
	})
	env.seedFlow(t, "sess-1", "acme", "", domain.StateEnterPassword, domain.StateRotatePassword, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", "sess-1", RecoveryContext{})
	require.NoError(t, err)
	require.Equal(t, domain.StateRotatePassword, res.State.Name)
	require.NotNil(t, res.PasswordPolicy)
	require.Equal(t, 12, res.PasswordPolicy.MinLength)
}

func TestAuthenticateUserEmailVerificationStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	user := env.createUser(t, "acme", "alice@acme.example", "correct horse battery", nil)
	env.seedFlow(t, "sess-1", "acme", "", domain.StateEnterPassword, domain.StateValidateEmail, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", "sess-1", RecoveryContext{Language: "de"})
	require.NoError(t, err)
	require.Equal(t, domain.StateValidateEmail, res.State.Name)

	// The verification mail went out with the requested language.
	require.Len(t, env.mailer.verifyMail, 1)
	require.Equal(t, user.Email, env.mailer.verifyMail[0].Email)
	require.Equal(t, "de", env.mailer.verifyMail[0].Language)
	require.NotEmpty(t, env.mailer.verifyMail[0].Token)

	// The mailed token closes the step.
	res, err = env.svc.ValidateEmail(ctx, env.mailer.verifyMail[0].Token, "sess-1", "")
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateRedirectToPortal, res.State.Name)
	require.NotEmpty(t, res.AccessToken)

	reloaded, err := env.store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.EmailVerified)
}

func TestAuthenticateUserComposesRequiredSteps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test-iam", AccountName: "strict@acme.example"})
	require.NoError(t, err)
	secret := key.Secret()

	// Built by hand: TOTP enrolled, rotation forced, email unverified and
	// terms never accepted.
	hash, err := cryptox.HashPassword("correct horse battery")
	require.NoError(t, err)
	user := domain.User{
		ID:                 idx.New().String(),
		TenantID:           "acme",
		Email:              "strict@acme.example",
		Enabled:            true,
		ForcePasswordReset: true,
		PreferredLanguage:  "en",
		NameOrder:          "GIVEN_FIRST",
		PasswordHash:       hash,
		MFASecret:          &secret,
	}
	require.NoError(t, env.store.Users().CreateUser(ctx, user))

	start, err := env.svc.StartAuthentication(ctx, "acme", "")
	require.NoError(t, err)
	session := start.State.SessionToken

	// The password alone must not complete the login: every outstanding
	// requirement splices in before the redirect.
	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", session, RecoveryContext{})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateValidateTOTP, res.State.Name)
	require.Empty(t, res.AccessToken)

	states := env.listStates(t, session)
	names := make([]domain.AuthStateName, 0, len(states))
	for _, st := range states {
		names = append(names, st.Name)
	}
	require.Equal(t, []domain.AuthStateName{
		domain.StateEnterPassword,
		domain.StateValidateTOTP,
		domain.StateRotatePassword,
		domain.StateValidateEmail,
		domain.StateAcceptTerms,
		domain.StateRedirectToPortal,
	}, names)
	require.Equal(t, domain.StatusComplete, states[0].Status)

	// Walk the spliced steps through to completion.
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	res, err = env.svc.ValidateTOTP(ctx, code, session)
	require.NoError(t, err)
	require.Equal(t, domain.StateRotatePassword, res.State.Name)
	require.NotNil(t, res.PasswordPolicy)

	res, err = env.svc.RotatePassword(ctx, "Completely new Passw0rd", session)
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateValidateEmail, res.State.Name)

	require.Len(t, env.mailer.verifyMail, 1)
	res, err = env.svc.ValidateEmail(ctx, env.mailer.verifyMail[0].Token, session, "")
	require.NoError(t, err)
	require.Equal(t, domain.StateAcceptTerms, res.State.Name)

	res, err = env.svc.AcceptTermsAndConditions(ctx, true, session, "")
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, domain.StateRedirectToPortal, res.State.Name)
	require.NotEmpty(t, res.AccessToken)

	events := env.listEvents(t, "acme")
	require.Len(t, events, 1)
	require.Equal(t, domain.EventSuccessLogon, events[0].Kind)
}

func TestAuthenticateUserDoesNotDuplicatePlannedSteps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createTenant(t, "acme")
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test-iam", AccountName: "planned@acme.example"})
	require.NoError(t, err)
	secret := key.Secret()
	user := env.createUser(t, "acme", "planned@acme.example", "correct horse battery", func(u *domain.User) {
		u.MFASecret = &secret
	})
	env.seedFlow(t, "sess-1", "acme", "", domain.StateEnterPassword, domain.StateValidateTOTP, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", "sess-1", RecoveryContext{})
	require.NoError(t, err)
	require.Equal(t, domain.StateValidateTOTP, res.State.Name)

	// The flow already plans the TOTP step; it must appear exactly once.
	states := env.listStates(t, "sess-1")
	require.Len(t, states, 3)
	require.Equal(t, domain.StateValidateTOTP, states[1].Name)
}
