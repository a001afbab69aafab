// Package authz holds the tenant/scope authorization decision engine and the
// call-wrapping protocol service operations are exposed through.
package authz

import (
	"github.com/veridianhq/veridian/internal/iam/domain"
)

// Engine decides whether a scoped principal may perform an operation against
// a target tenant. It is a pure function over its inputs; the only
// configuration is which tenant is the root administrative tenant.
type Engine struct {
	RootTenantID string
}

// IsRoot reports whether the principal administers the root tenant. Root
// administrators manage all tenants and bypass secondary constraints.
func (e *Engine) IsRoot(p *domain.Principal) bool {
	return p != nil && p.ManagementAccessTenantID == e.RootTenantID
}

// Decide applies the authorization rules in order:
//
//  1. no principal or no granted scopes: denied (missing profile)
//  2. none of the required scopes granted: denied (insufficient scope)
//  3. root principal: authorized unconditionally
//  4. no target tenant: denied (target tenant required)
//  5. target tenant differs from the management-access tenant: denied
//  6. otherwise authorized
//
// An empty targetTenantID stands for "no target tenant".
func (e *Engine) Decide(p *domain.Principal, required []string, targetTenantID string) domain.Decision {
	if p == nil || len(p.Scopes) == 0 {
		return domain.Deny(domain.ECMissingProfile)
	}
	if !p.HasAnyScope(required...) {
		return domain.Deny(domain.ECInsufficientScope)
	}
	if e.IsRoot(p) {
		return domain.Allow()
	}
	if targetTenantID == "" {
		return domain.Deny(domain.ECTenantRequired)
	}
	if targetTenantID != p.ManagementAccessTenantID {
		return domain.Deny(domain.ECCrossTenant)
	}
	return domain.Allow()
}

// FilterByTenant returns records visible to the principal: the full list for
// root-tenant principals, otherwise only records owned by the principal's
// management-access tenant.
func FilterByTenant[T any](rootTenantID string, p *domain.Principal, items []T, tenantOf func(T) string) []T {
	if p != nil && p.ManagementAccessTenantID == rootTenantID {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if p != nil && tenantOf(it) == p.ManagementAccessTenantID {
			out = append(out, it)
		}
	}
	return out
}
