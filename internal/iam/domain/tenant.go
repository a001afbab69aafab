package domain

import "time"

type Tenant struct {
	ID        string
	Name      string
	Domain    string // email domain used to resolve users during login
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PasswordPolicy is the per-tenant policy attached to ROTATE_PASSWORD
// responses so the client can render live validation.
type PasswordPolicy struct {
	MinLength      int  `json:"min_length"`
	RequireUpper   bool `json:"require_upper"`
	RequireLower   bool `json:"require_lower"`
	RequireDigit   bool `json:"require_digit"`
	RequireSymbol  bool `json:"require_symbol"`
	RotationDays   int  `json:"rotation_days,omitempty"`
	HistoryEntries int  `json:"history_entries,omitempty"`
}

// SystemSettings are the installation-wide settings row. RootTenantID names
// the tenant whose administrators may act across all tenants.
type SystemSettings struct {
	RootTenantID   string
	MFAIssuer      string
	AuthDomain     string
	PortalTokenTTL time.Duration
}
