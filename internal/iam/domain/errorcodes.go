package domain

// ErrorCode is a stable, opaque identifier in the error taxonomy. The service
// layer emits codes, never free-form strings, so no untrusted input ever
// reaches a caller-visible message.
type ErrorCode string

const (
	ECInternal           ErrorCode = "EC00001"
	ECMissingProfile     ErrorCode = "EC00002"
	ECInsufficientScope  ErrorCode = "EC00003"
	ECCrossTenant        ErrorCode = "EC00004"
	ECTenantRequired     ErrorCode = "EC00005"
	ECInvalidCredentials ErrorCode = "EC00090"
	ECPasswordPolicy     ErrorCode = "EC00092"
	ECWrongStep          ErrorCode = "EC00095"
	ECUserNotFound       ErrorCode = "EC00096"
	ECUserNotUsable      ErrorCode = "EC00097"
	ECNoRecoveryEmail    ErrorCode = "EC00098"
	ECResetTokenInvalid  ErrorCode = "EC00099"
	ECTermsDeclined      ErrorCode = "EC00100"
	ECDeviceCodeNotFound ErrorCode = "EC00101"
	ECDeviceCodeExpired  ErrorCode = "EC00102"
	ECDeviceCodeResolved ErrorCode = "EC00103"
)

// ErrorDetail is the caller-facing shape of a coded error.
type ErrorDetail struct {
	Code        ErrorCode `json:"error_code"`
	Title       string    `json:"error_title"`
	Description string    `json:"error_description"`
}

// catalog is the static registry every code resolves against. Titles and
// descriptions are fixed at compile time.
var catalog = map[ErrorCode]ErrorDetail{
	ECInternal:           {ECInternal, "Internal error", "The request could not be processed."},
	ECMissingProfile:     {ECMissingProfile, "Missing profile", "The caller has no principal or no granted scopes."},
	ECInsufficientScope:  {ECInsufficientScope, "Insufficient scope", "None of the required scopes were granted to the caller."},
	ECCrossTenant:        {ECCrossTenant, "Cross-tenant access forbidden", "The target tenant differs from the caller's management-access tenant."},
	ECTenantRequired:     {ECTenantRequired, "Target tenant required", "A non-root caller must name a target tenant."},
	ECInvalidCredentials: {ECInvalidCredentials, "Invalid credentials", "The supplied credentials could not be verified."},
	ECPasswordPolicy:     {ECPasswordPolicy, "Password policy violation", "The new password does not satisfy the tenant's password policy."},
	ECWrongStep:          {ECWrongStep, "Wrong authentication step", "The requested operation does not match the step currently due."},
	ECUserNotFound:       {ECUserNotFound, "User not found", "No user could be resolved for this step."},
	ECUserNotUsable:      {ECUserNotUsable, "User not usable", "The user is disabled or marked for deletion."},
	ECNoRecoveryEmail:    {ECNoRecoveryEmail, "No recovery email", "The user has no verified recovery email on record."},
	ECResetTokenInvalid:  {ECResetTokenInvalid, "Invalid reset token", "The password reset token is unknown or already consumed."},
	ECTermsDeclined:      {ECTermsDeclined, "Terms declined", "Accepting the terms and conditions is mandatory."},
	ECDeviceCodeNotFound: {ECDeviceCodeNotFound, "Unknown user code", "No pending device authorization matches this code."},
	ECDeviceCodeExpired:  {ECDeviceCodeExpired, "User code expired", "The device authorization has expired."},
	ECDeviceCodeResolved: {ECDeviceCodeResolved, "User code already resolved", "The device authorization was already approved or cancelled."},
}

// Detail resolves the code against the registry. Unknown codes resolve to the
// internal error so a bad code never leaks as an empty message.
func (c ErrorCode) Detail() *ErrorDetail {
	d, ok := catalog[c]
	if !ok {
		d = catalog[ECInternal]
	}
	return &d
}
