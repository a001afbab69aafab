package domain

import "slices"

// Principal is the authenticated caller context, constructed per-request from
// a verified token. It is read-only within a request and never persisted.
type Principal struct {
	UserID                   string
	TenantID                 string
	ManagementAccessTenantID string // the tenant the caller administers
	Scopes                   []string
}

// HasAnyScope reports whether at least one of the required scopes was granted.
func (p *Principal) HasAnyScope(required ...string) bool {
	for _, want := range required {
		if slices.Contains(p.Scopes, want) {
			return true
		}
	}
	return false
}

// Decision is the transient outcome of a scope/tenant authorization check.
type Decision struct {
	Authorized bool
	Err        *ErrorDetail
}

// Allow is the authorized decision with no error detail.
func Allow() Decision { return Decision{Authorized: true} }

// Deny builds a denied decision carrying the coded error detail.
func Deny(code ErrorCode) Decision {
	return Decision{Authorized: false, Err: code.Detail()}
}
