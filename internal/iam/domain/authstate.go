package domain

import "time"

// AuthStateName identifies a single named step within a login, recovery or
// device-authorization flow.
type AuthStateName string

const (
	StateEnterPassword      AuthStateName = "ENTER_PASSWORD"
	StateValidateTOTP       AuthStateName = "VALIDATE_TOTP"
	StateValidateEmail      AuthStateName = "VALIDATE_EMAIL"
	StateRotatePassword     AuthStateName = "ROTATE_PASSWORD"
	StateAcceptTerms        AuthStateName = "ACCEPT_TERMS_AND_CONDITIONS"
	StateRedirectToPortal   AuthStateName = "REDIRECT_TO_IAM_PORTAL"
	StateRedirectToApp      AuthStateName = "REDIRECT_BACK_TO_APPLICATION"
	StateForgotPassword     AuthStateName = "FORGOT_PASSWORD"
	StateValidateResetToken AuthStateName = "VALIDATE_PASSWORD_RESET_TOKEN"
	StateEnterEmail         AuthStateName = "ENTER_EMAIL"
	StateDuressLogon        AuthStateName = "DURESS_LOGON"
	StateSendEventSuccess   AuthStateName = "POST_AUTHN_STATE_SEND_SECURITY_EVENT_SUCCESS_LOGON"
	StateSendEventDuress    AuthStateName = "POST_AUTHN_STATE_SEND_SECURITY_EVENT_DURESS_LOGON"
	StateError              AuthStateName = "ERROR"
)

// IsTerminal reports whether the state ends the session. ERROR is the
// non-recoverable terminal; the redirect states are the success terminals.
func (n AuthStateName) IsTerminal() bool {
	switch n {
	case StateError, StateRedirectToPortal, StateRedirectToApp:
		return true
	}
	return false
}

// DuressVariant maps a state name onto its duress counterpart so that the
// downstream security-event dispatch records a coerced login distinctly from
// a normal one.
func (n AuthStateName) DuressVariant() AuthStateName {
	switch n {
	case StateSendEventSuccess:
		return StateSendEventDuress
	case StateSendEventDuress:
		return n
	default:
		return StateDuressLogon
	}
}

// IsDuress reports whether the state name marks a coerced login.
func (n AuthStateName) IsDuress() bool {
	return n == StateDuressLogon || n == StateSendEventDuress
}

type StateStatus string

const (
	StatusIncomplete StateStatus = "INCOMPLETE"
	StatusComplete   StateStatus = "COMPLETE"
)

// AuthenticationState is one step in an ordered flow. All states belonging to
// one flow instance share a session token; (SessionToken, Order) is the
// composite key. The lowest-order INCOMPLETE state is the step currently due.
type AuthenticationState struct {
	SessionToken string
	Name         AuthStateName
	Order        int
	Status       StateStatus
	ExpiresAt    time.Time
	TenantID     string
	UserID       string
	PreAuthToken string
	ReturnToURI  string
}

// AuthenticationResult is what the state machine hands back after each call:
// the step that is now due (or a terminal/error state), an optional soft
// error, and extras the next step needs.
type AuthenticationResult struct {
	State          *AuthenticationState
	Error          *ErrorDetail
	PasswordPolicy *PasswordPolicy
	AccessToken    string
}

// ValidationResult is the transient outcome of one credential check. It is
// never persisted.
type ValidationResult struct {
	Valid  bool
	Duress bool
	Err    *ErrorDetail
}

// AuthEventKind classifies change-event log entries written on completion.
type AuthEventKind string

const (
	EventSuccessLogon AuthEventKind = "success_logon"
	EventDuressLogon  AuthEventKind = "duress_logon"
)

// AuthEvent is an authentication-history record, also used as the carrier for
// security events (a duress logon is the silent alarm).
type AuthEvent struct {
	ID           string
	TenantID     string
	UserID       string
	SessionToken string
	Kind         AuthEventKind
	CreatedAt    time.Time
}
