package sqlite

import (
	"context"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

type tenantsRepo struct {
	q querier
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Domain, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tenantsRepo) GetTenantByDomain(ctx context.Context, emailDomain string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM tenants WHERE domain = ?`, emailDomain,
	).Scan(&t.ID, &t.Name, &t.Domain, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant, policy domain.PasswordPolicy) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tenants (
			id, name, domain,
			pw_min_length, pw_require_upper, pw_require_lower, pw_require_digit,
			pw_require_symbol, pw_rotation_days, pw_history_entries,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Domain,
		policy.MinLength, policy.RequireUpper, policy.RequireLower, policy.RequireDigit,
		policy.RequireSymbol, policy.RotationDays, policy.HistoryEntries,
		t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *tenantsRepo) GetPasswordPolicy(ctx context.Context, tenantID string) (domain.PasswordPolicy, error) {
	var p domain.PasswordPolicy
	err := r.q.QueryRowContext(ctx, `
		SELECT pw_min_length, pw_require_upper, pw_require_lower, pw_require_digit,
		       pw_require_symbol, pw_rotation_days, pw_history_entries
		FROM tenants WHERE id = ?`, tenantID,
	).Scan(&p.MinLength, &p.RequireUpper, &p.RequireLower, &p.RequireDigit,
		&p.RequireSymbol, &p.RotationDays, &p.HistoryEntries)
	if err != nil {
		return domain.PasswordPolicy{}, mapNotFound(err)
	}
	return p, nil
}

func (r *tenantsRepo) GetSystemSettings(ctx context.Context) (domain.SystemSettings, error) {
	var (
		s          domain.SystemSettings
		ttlSeconds int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT root_tenant_id, mfa_issuer, auth_domain, portal_token_ttl_seconds
		FROM system_settings WHERE id = 1`,
	).Scan(&s.RootTenantID, &s.MFAIssuer, &s.AuthDomain, &ttlSeconds)
	if err != nil {
		return domain.SystemSettings{}, mapNotFound(err)
	}
	s.PortalTokenTTL = time.Duration(ttlSeconds) * time.Second
	return s, nil
}
