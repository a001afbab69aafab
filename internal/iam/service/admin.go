package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veridianhq/veridian/internal/iam/authz"
	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/cryptox"
	"github.com/veridianhq/veridian/pkg/idx"
	"github.com/veridianhq/veridian/pkg/slogx"
)

// Scopes granted to portal administrators. A tenant administrator holds these
// against their own tenant; a root-tenant administrator holds them globally.
const (
	ScopeTenantsRead  = "iam:tenants:read"
	ScopeTenantsWrite = "iam:tenants:write"
	ScopeUsersWrite   = "iam:users:write"
	ScopeEventsRead   = "iam:events:read"
)

// AdminService exposes the management-plane operations. Every operation runs
// through the call-wrapping protocol so scope and tenant enforcement stay in
// one place instead of being re-implemented per handler.
type AdminService struct {
	Store  store.Store
	Engine *authz.Engine
}

// GetTenant returns a tenant visible to the principal.
func (s *AdminService) GetTenant(ctx context.Context, p *domain.Principal, tenantID string) (domain.Tenant, error) {
	w := &authz.Wrapped{
		Engine: s.Engine,
		Do: func(ctx context.Context, args []any) (any, error) {
			return s.Store.Tenants().GetTenantByID(ctx, args[0].(string))
		},
		ConstraintCheck: func(ctx context.Context, result any) *domain.ErrorDetail {
			if result.(domain.Tenant).ID != p.ManagementAccessTenantID {
				return domain.ECCrossTenant.Detail()
			}
			return nil
		},
	}

	result, err := w.CallWithTenant(ctx, p, []string{ScopeTenantsRead}, tenantID, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	return result.(domain.Tenant), nil
}

// CreateTenant provisions a new tenant with its password policy. Only
// root-tenant administrators can reach the operation: the target tenant does
// not exist yet, and a missing target is exactly what non-root callers are
// denied on.
func (s *AdminService) CreateTenant(ctx context.Context, p *domain.Principal, t domain.Tenant, policy domain.PasswordPolicy) (domain.Tenant, error) {
	w := &authz.Wrapped{
		Engine: s.Engine,
		PreProcess: func(ctx context.Context, args []any) (*authz.ArgOverride, error) {
			tenant := args[0].(domain.Tenant)
			if tenant.ID == "" {
				tenant.ID = idx.New().String()
				return authz.PartialOverride(map[int]any{0: tenant}), nil
			}
			return nil, nil
		},
		Do: func(ctx context.Context, args []any) (any, error) {
			tenant := args[0].(domain.Tenant)
			if err := s.Store.Tenants().CreateTenant(ctx, tenant, args[1].(domain.PasswordPolicy)); err != nil {
				return nil, fmt.Errorf("create tenant: %w", err)
			}
			return tenant, nil
		},
		PostProcess: func(ctx context.Context, result any) {
			slogx.FromContext(ctx).Info("tenant created",
				slog.String("tenant_id", result.(domain.Tenant).ID),
				slog.String("actor_id", p.UserID),
			)
		},
	}

	result, err := w.Call(ctx, p, []string{ScopeTenantsWrite}, t, policy)
	if err != nil {
		return domain.Tenant{}, err
	}
	return result.(domain.Tenant), nil
}

// CreateUser provisions a user inside a tenant the principal manages. An
// empty id and missing password hash are filled in before the insert runs.
func (s *AdminService) CreateUser(ctx context.Context, p *domain.Principal, u domain.User, password string) (domain.User, error) {
	w := &authz.Wrapped{
		Engine: s.Engine,
		PreProcess: func(ctx context.Context, args []any) (*authz.ArgOverride, error) {
			user := args[0].(domain.User)
			if user.ID == "" {
				user.ID = idx.New().String()
			}
			if password != "" {
				hash, err := cryptox.HashPassword(password)
				if err != nil {
					return nil, fmt.Errorf("hash password: %w", err)
				}
				user.PasswordHash = hash
			}
			return authz.FullOverride(user), nil
		},
		Do: func(ctx context.Context, args []any) (any, error) {
			user := args[0].(domain.User)
			if err := s.Store.Users().CreateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("create user: %w", err)
			}
			return user, nil
		},
		ConstraintCheck: func(ctx context.Context, result any) *domain.ErrorDetail {
			if result.(domain.User).TenantID != p.ManagementAccessTenantID {
				return domain.ECCrossTenant.Detail()
			}
			return nil
		},
		PostProcess: func(ctx context.Context, result any) {
			user := result.(domain.User)
			slogx.FromContext(ctx).Info("user created",
				slog.String("user_id", user.ID),
				slog.String("tenant_id", user.TenantID),
				slog.String("actor_id", p.UserID),
			)
		},
	}

	result, err := w.CallWithTenant(ctx, p, []string{ScopeUsersWrite}, u.TenantID, u)
	if err != nil {
		return domain.User{}, err
	}
	return result.(domain.User), nil
}

// ListAuthEvents returns the authentication history visible to the principal.
// Root-tenant administrators with an empty tenant filter see the whole
// installation; everyone else sees their own tenant only.
func (s *AdminService) ListAuthEvents(ctx context.Context, p *domain.Principal, tenantID string, limit int) ([]domain.AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	w := &authz.Wrapped{
		Engine: s.Engine,
		Do: func(ctx context.Context, args []any) (any, error) {
			tid := args[0].(string)
			if tid == "" {
				return s.Store.AuthEvents().ListRecent(ctx, limit)
			}
			return s.Store.AuthEvents().ListByTenant(ctx, tid, limit)
		},
	}

	var (
		result any
		err    error
	)
	if s.Engine.IsRoot(p) && tenantID == "" {
		result, err = w.Call(ctx, p, []string{ScopeEventsRead}, tenantID)
	} else {
		result, err = w.CallWithTenant(ctx, p, []string{ScopeEventsRead}, tenantID, tenantID)
	}
	if err != nil {
		return nil, err
	}

	events := result.([]domain.AuthEvent)
	return authz.FilterByTenant(s.Engine.RootTenantID, p, events, func(ev domain.AuthEvent) string {
		return ev.TenantID
	}), nil
}
