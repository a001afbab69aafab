package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store/drivers/sqlite"
	"github.com/veridianhq/veridian/pkg/cryptox"
	"github.com/veridianhq/veridian/pkg/idx"
	"github.com/veridianhq/veridian/pkg/jwtx"
)

// captureMailer records deliveries so tests can fish out the minted tokens.
type captureMailer struct {
	resetMail  []capturedMail
	verifyMail []capturedMail
}

type capturedMail struct {
	Email    string
	Token    string
	Language string
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, token, language string) error {
	m.resetMail = append(m.resetMail, capturedMail{email, token, language})
	return nil
}

func (m *captureMailer) SendEmailVerification(ctx context.Context, email, token, language string) error {
	m.verifyMail = append(m.verifyMail, capturedMail{email, token, language})
	return nil
}

type testEnv struct {
	store  *sqlite.Store
	svc    *AuthenticateService
	mailer *captureMailer
	signer *jwtx.EdDSASigner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewEphemeralSigner("test-1")
	require.NoError(t, err)

	mailer := &captureMailer{}
	return &testEnv{
		store:  st,
		mailer: mailer,
		signer: signer,
		svc: &AuthenticateService{
			Store:  st,
			Signer: signer,
			Mailer: mailer,
			Issuer: "test-iam",
		},
	}
}

func (e *testEnv) createTenant(t *testing.T, id string) domain.Tenant {
	t.Helper()

	tenant := domain.Tenant{ID: id, Name: id, Domain: id + ".example"}
	policy := domain.PasswordPolicy{MinLength: 12, RequireUpper: true, RequireLower: true, RequireDigit: true}
	require.NoError(t, e.store.Tenants().CreateTenant(context.Background(), tenant, policy))
	return tenant
}

func (e *testEnv) createUser(t *testing.T, tenantID, email, password string, mutate func(*domain.User)) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	// The default user is fully established: email verified and terms
	// accepted, so logins run the flow as seeded without extra steps.
	user := domain.User{
		ID:                idx.New().String(),
		TenantID:          tenantID,
		Email:             email,
		Name:              "Test User",
		Enabled:           true,
		EmailVerified:     true,
		PreferredLanguage: "en",
		NameOrder:         "GIVEN_FIRST",
		PasswordHash:      hash,
	}
	if mutate != nil {
		mutate(&user)
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), user))
	require.NoError(t, e.store.Terms().AddAcceptance(context.Background(), domain.TermsAcceptance{
		UserID:   user.ID,
		TenantID: tenantID,
	}))
	return user
}

// seedFlow inserts state rows for one session; each entry is (name, order).
func (e *testEnv) seedFlow(t *testing.T, sessionToken, tenantID, userID string, steps ...domain.AuthStateName) []domain.AuthenticationState {
	t.Helper()

	expires := time.Now().UTC().Add(15 * time.Minute)
	states := make([]domain.AuthenticationState, 0, len(steps))
	for i, name := range steps {
		states = append(states, domain.AuthenticationState{
			SessionToken: sessionToken,
			Name:         name,
			Order:        (i + 1) * 10,
			Status:       domain.StatusIncomplete,
			ExpiresAt:    expires,
			TenantID:     tenantID,
			UserID:       userID,
		})
	}
	require.NoError(t, e.store.AuthStates().CreateStates(context.Background(), states))
	return states
}

func (e *testEnv) listStates(t *testing.T, sessionToken string) []domain.AuthenticationState {
	t.Helper()

	states, err := e.store.AuthStates().ListBySessionToken(context.Background(), sessionToken)
	require.NoError(t, err)
	return states
}

func (e *testEnv) listEvents(t *testing.T, tenantID string) []domain.AuthEvent {
	t.Helper()

	events, err := e.store.AuthEvents().ListByTenant(context.Background(), tenantID, 100)
	require.NoError(t, err)
	return events
}
