package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/iam/authz"
	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/pkg/idx"
)

func newAdminEnv(t *testing.T) (*testEnv, *AdminService) {
	t.Helper()

	env := newTestEnv(t)
	admin := &AdminService{
		Store:  env.store,
		Engine: &authz.Engine{RootTenantID: "root"},
	}
	env.createTenant(t, "root")
	env.createTenant(t, "acme")
	return env, admin
}

func rootPrincipal(scopes ...string) *domain.Principal {
	return &domain.Principal{UserID: "u-root", TenantID: "root", ManagementAccessTenantID: "root", Scopes: scopes}
}

func acmePrincipal(scopes ...string) *domain.Principal {
	return &domain.Principal{UserID: "u-acme", TenantID: "acme", ManagementAccessTenantID: "acme", Scopes: scopes}
}

func TestAdminCreateTenant(t *testing.T) {
	_, admin := newAdminEnv(t)
	ctx := context.Background()

	t.Run("root can provision tenants", func(t *testing.T) {
		tenant, err := admin.CreateTenant(ctx, rootPrincipal(ScopeTenantsWrite),
			domain.Tenant{Name: "Globex", Domain: "globex.example"},
			domain.PasswordPolicy{MinLength: 12},
		)
		require.NoError(t, err)
		require.NotEmpty(t, tenant.ID, "id assigned during pre-processing")

		got, err := admin.GetTenant(ctx, rootPrincipal(ScopeTenantsRead), tenant.ID)
		require.NoError(t, err)
		require.Equal(t, "Globex", got.Name)
	})

	t.Run("tenant admins cannot", func(t *testing.T) {
		_, err := admin.CreateTenant(ctx, acmePrincipal(ScopeTenantsWrite),
			domain.Tenant{Name: "Rogue", Domain: "rogue.example"},
			domain.PasswordPolicy{},
		)
		var denied *authz.Error
		require.ErrorAs(t, err, &denied)
		require.Equal(t, domain.ECTenantRequired, denied.Detail.Code)
	})

	t.Run("missing scope denied", func(t *testing.T) {
		_, err := admin.CreateTenant(ctx, rootPrincipal(ScopeTenantsRead),
			domain.Tenant{Name: "X", Domain: "x.example"},
			domain.PasswordPolicy{},
		)
		var denied *authz.Error
		require.ErrorAs(t, err, &denied)
		require.Equal(t, domain.ECInsufficientScope, denied.Detail.Code)
	})
}

func TestAdminGetTenant(t *testing.T) {
	_, admin := newAdminEnv(t)
	ctx := context.Background()

	t.Run("tenant admin reads own tenant", func(t *testing.T) {
		got, err := admin.GetTenant(ctx, acmePrincipal(ScopeTenantsRead), "acme")
		require.NoError(t, err)
		require.Equal(t, "acme", got.ID)
	})

	t.Run("tenant admin denied across tenants", func(t *testing.T) {
		_, err := admin.GetTenant(ctx, acmePrincipal(ScopeTenantsRead), "root")
		var denied *authz.Error
		require.ErrorAs(t, err, &denied)
		require.Equal(t, domain.ECCrossTenant, denied.Detail.Code)
	})

	t.Run("root reads any tenant", func(t *testing.T) {
		got, err := admin.GetTenant(ctx, rootPrincipal(ScopeTenantsRead), "acme")
		require.NoError(t, err)
		require.Equal(t, "acme", got.ID)
	})
}

func TestAdminCreateUser(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()

	t.Run("tenant admin creates users in own tenant", func(t *testing.T) {
		user, err := admin.CreateUser(ctx, acmePrincipal(ScopeUsersWrite),
			domain.User{TenantID: "acme", Email: "new@acme.example", Enabled: true},
			"Initial Passw0rd",
		)
		require.NoError(t, err)
		require.NotEmpty(t, user.ID)
		require.NotEmpty(t, user.PasswordHash)

		stored, err := env.store.Users().GetUserByEmail(ctx, "acme", "new@acme.example")
		require.NoError(t, err)
		require.Equal(t, user.ID, stored.ID)
	})

	t.Run("cross-tenant creation denied", func(t *testing.T) {
		_, err := admin.CreateUser(ctx, acmePrincipal(ScopeUsersWrite),
			domain.User{TenantID: "root", Email: "intruder@root.example", Enabled: true},
			"Initial Passw0rd",
		)
		var denied *authz.Error
		require.ErrorAs(t, err, &denied)
		require.Equal(t, domain.ECCrossTenant, denied.Detail.Code)
	})
}

func TestAdminListAuthEvents(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, tenant := range []string{"acme", "acme", "root"} {
		ev := domain.AuthEvent{
			ID:           idx.New().String(),
			TenantID:     tenant,
			UserID:       "u",
			SessionToken: "s",
			Kind:         domain.EventSuccessLogon,
			CreatedAt:    now,
		}
		require.NoError(t, env.store.AuthEvents().Append(ctx, ev))
	}

	t.Run("root with no filter sees the installation", func(t *testing.T) {
		events, err := admin.ListAuthEvents(ctx, rootPrincipal(ScopeEventsRead), "", 0)
		require.NoError(t, err)
		require.Len(t, events, 3)
	})

	t.Run("tenant admin sees own tenant only", func(t *testing.T) {
		events, err := admin.ListAuthEvents(ctx, acmePrincipal(ScopeEventsRead), "acme", 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		for _, ev := range events {
			require.Equal(t, "acme", ev.TenantID)
		}
	})

	t.Run("tenant admin denied for other tenants", func(t *testing.T) {
		_, err := admin.ListAuthEvents(ctx, acmePrincipal(ScopeEventsRead), "root", 0)
		var denied *authz.Error
		require.ErrorAs(t, err, &denied)
		require.Equal(t, domain.ECCrossTenant, denied.Detail.Code)
	})

	t.Run("tenant admin without target denied", func(t *testing.T) {
		_, err := admin.ListAuthEvents(ctx, acmePrincipal(ScopeEventsRead), "", 0)
		var denied *authz.Error
		require.ErrorAs(t, err, &denied)
		require.Equal(t, domain.ECTenantRequired, denied.Detail.Code)
	})
}

func TestLoginIssuedTokenAuthorizesAdmin(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "acme", "admin@acme.example", "correct horse battery", func(u *domain.User) {
		u.Scopes = []string{ScopeTenantsRead, ScopeEventsRead}
	})
	env.seedFlow(t, "sess-adm", "acme", "", domain.StateEnterPassword, domain.StateRedirectToPortal)

	res, err := env.svc.AuthenticateUser(ctx, user.Email, "correct horse battery", "acme", "sess-adm", RecoveryContext{})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	// The granted scopes ride the portal token.
	claims, err := env.signer.Verify(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{ScopeTenantsRead, ScopeEventsRead}, claims.Scopes)

	p := &domain.Principal{
		UserID:                   claims.Subject,
		TenantID:                 claims.TenantID,
		ManagementAccessTenantID: claims.ManagementTenantID,
		Scopes:                   claims.Scopes,
	}
	got, err := admin.GetTenant(ctx, p, "acme")
	require.NoError(t, err)
	require.Equal(t, "acme", got.ID)

	// Scopes the user was never granted still deny.
	_, err = admin.CreateUser(ctx, p, domain.User{TenantID: "acme", Email: "new@acme.example"}, "pw")
	var denied *authz.Error
	require.ErrorAs(t, err, &denied)
	require.Equal(t, domain.ECInsufficientScope, denied.Detail.Code)
}
