package domain

import "time"

type User struct {
	ID                    string
	TenantID              string
	Email                 string
	Name                  string
	Enabled               bool
	Locked                bool
	MarkForDelete         bool
	EmailVerified         bool
	PreferredLanguage     string
	NameOrder             string
	ForcePasswordReset    bool
	PasswordHash          string  // argon2id encoded
	DuressPasswordHash    *string // optional silent-alarm credential
	MFASecret             *string // TOTP secret (nullable, base32 encoded)
	RecoveryEmail         *string
	RecoveryEmailVerified bool
	Scopes                []string // portal scopes minted into the user's tokens
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TermsAcceptance records that a user accepted the tenant's terms and
// conditions.
type TermsAcceptance struct {
	UserID     string
	TenantID   string
	AcceptedAt time.Time
}
