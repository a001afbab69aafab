package iamsdk

import "time"

// ErrorDetail is the coded error envelope carried inside step responses. The
// codes are stable API surface; clients branch on them.
type ErrorDetail struct {
	Code        string `json:"errorCode"`
	Title       string `json:"errorTitle"`
	Description string `json:"errorDescription"`
}

// PasswordPolicy is attached to ROTATE_PASSWORD responses so clients can
// render live validation.
type PasswordPolicy struct {
	MinLength      int  `json:"min_length"`
	RequireUpper   bool `json:"require_upper"`
	RequireLower   bool `json:"require_lower"`
	RequireDigit   bool `json:"require_digit"`
	RequireSymbol  bool `json:"require_symbol"`
	RotationDays   int  `json:"rotation_days,omitempty"`
	HistoryEntries int  `json:"history_entries,omitempty"`
}

// StepResponse is the uniform response of every authentication-flow endpoint:
// the step now due (or a terminal state), an optional coded error, and
// whatever extras the next step needs.
type StepResponse struct {
	SessionToken   string          `json:"session_token,omitempty"`
	State          string          `json:"state,omitempty"`
	Error          *ErrorDetail    `json:"error,omitempty"`
	PasswordPolicy *PasswordPolicy `json:"password_policy,omitempty"`
	AccessToken    string          `json:"access_token,omitempty"`
	ReturnToURI    string          `json:"return_to_uri,omitempty"`
}

// StartAuthenticationRequest begins a logon flow.
type StartAuthenticationRequest struct {
	TenantID    string `json:"tenant_id"`
	ReturnToURI string `json:"return_to_uri,omitempty"`
}

// StartRecoveryRequest begins a self-service password recovery flow.
type StartRecoveryRequest struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
}

// PasswordRequest submits credentials against the ENTER_PASSWORD step.
type PasswordRequest struct {
	SessionToken string `json:"session_token"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Language     string `json:"language,omitempty"`
}

// TOTPRequest submits a one-time code against the VALIDATE_TOTP step.
type TOTPRequest struct {
	SessionToken string `json:"session_token"`
	Code         string `json:"code"`
	Language     string `json:"language,omitempty"`
}

// ForgotPasswordRequest triggers the reset mail from the FORGOT_PASSWORD step.
type ForgotPasswordRequest struct {
	SessionToken     string `json:"session_token"`
	UseRecoveryEmail bool   `json:"use_recovery_email,omitempty"`
	Language         string `json:"language,omitempty"`
}

// TokenRequest submits a mailed single-use token against its validation step.
type TokenRequest struct {
	SessionToken string `json:"session_token"`
	Token        string `json:"token"`
	Language     string `json:"language,omitempty"`
}

// RotatePasswordRequest submits the replacement password.
type RotatePasswordRequest struct {
	SessionToken string `json:"session_token"`
	NewPassword  string `json:"new_password"`
	Language     string `json:"language,omitempty"`
}

// TermsRequest records the terms-and-conditions decision.
type TermsRequest struct {
	SessionToken string `json:"session_token"`
	Accepted     bool   `json:"accepted"`
	Version      string `json:"version,omitempty"`
	Language     string `json:"language,omitempty"`
}

// EmailRequest submits an account email against the ENTER_EMAIL step.
type EmailRequest struct {
	SessionToken string `json:"session_token"`
	Email        string `json:"email"`
}

// UserCodeRequest enters a device-flow user code.
type UserCodeRequest struct {
	UserCode string `json:"user_code"`
}

// DeviceAuthorizationRequest registers a pending device-code grant.
type DeviceAuthorizationRequest struct {
	ClientID string `json:"client_id"`
	TenantID string `json:"tenant_id"`
}

// DeviceAuthorizationResponse hands the initiating device its grant id and
// the short code the user enters on a secondary device.
type DeviceAuthorizationResponse struct {
	DeviceCode string    `json:"device_code"`
	UserCode   string    `json:"user_code"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// TenantResponse is the management-plane view of a tenant.
type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTenantRequest provisions a tenant with its password policy.
type CreateTenantRequest struct {
	Name   string         `json:"name"`
	Domain string         `json:"domain"`
	Policy PasswordPolicy `json:"password_policy"`
}

// CreateUserRequest provisions a user inside a tenant.
type CreateUserRequest struct {
	TenantID string   `json:"tenant_id"`
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
	Password string   `json:"password"`
	Scopes   []string `json:"scopes,omitempty"`
}

// UserResponse is the management-plane view of a user.
type UserResponse struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// AuthEventResponse is one authentication-history record.
type AuthEventResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAuthEventsResponse wraps the event list.
type ListAuthEventsResponse struct {
	Events []AuthEventResponse `json:"events"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
