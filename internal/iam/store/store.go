package store

import (
	"context"
	"errors"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// anything with the same key semantics tomorrow) implement this. Concerns are
// split into sub-repositories so services depend only on what they touch.
type Store interface {
	Users() Users
	AuthStates() AuthStates
	ResetTokens() ResetTokens
	DeviceCodes() DeviceCodes
	Tenants() Tenants
	Terms() Terms
	AuthEvents() AuthEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back on error and
	// committing on nil. Multi-row state advancement goes through this.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves a user within a tenant by email address.
	GetUserByEmail(ctx context.Context, tenantID, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// ClearForcePasswordReset drops the force-reset flag after a rotation.
	ClearForcePasswordReset(ctx context.Context, userID string) error

	// SetEmailVerified marks the user's primary email as verified.
	SetEmailVerified(ctx context.Context, userID string) error

	// GetRecoveryEmail returns the user's recovery email and whether it has
	// been verified. ErrNotFound when no recovery email is on record.
	GetRecoveryEmail(ctx context.Context, userID string) (email string, verified bool, err error)
}

type AuthStates interface {
	// ListBySessionToken returns all states of one flow instance ordered by
	// their step order, ascending.
	ListBySessionToken(ctx context.Context, sessionToken string) ([]domain.AuthenticationState, error)

	// CreateStates inserts the given state rows.
	CreateStates(ctx context.Context, states []domain.AuthenticationState) error

	// DeleteState removes one row by its (session token, order) key.
	DeleteState(ctx context.Context, st domain.AuthenticationState) error

	// UpdateState rewrites a row in place where the driver supports it.
	UpdateState(ctx context.Context, st domain.AuthenticationState) error

	// DeleteBySessionToken removes every state of a flow instance.
	DeleteBySessionToken(ctx context.Context, sessionToken string) error

	// DeleteExpired is housekeeping for abandoned flows.
	DeleteExpired(ctx context.Context) error
}

// TokenKind distinguishes the single-use token families sharing one table.
type TokenKind string

const (
	TokenPasswordReset     TokenKind = "password_reset"
	TokenEmailVerification TokenKind = "email_verification"
)

type ResetTokens interface {
	// SaveToken persists a single-use token fingerprint against a user.
	SaveToken(ctx context.Context, userID, tokenHash string, kind TokenKind, expiresAt time.Time) error

	// GetUserByToken resolves the owning user of a live token.
	GetUserByToken(ctx context.Context, tokenHash string, kind TokenKind) (domain.User, error)

	// DeleteToken consumes a token. Exactly-once semantics come from the
	// fingerprint being the primary key.
	DeleteToken(ctx context.Context, tokenHash string, kind TokenKind) error

	// DeleteExpired is housekeeping.
	DeleteExpired(ctx context.Context) error
}

type DeviceCodes interface {
	// GetByUserCodeHash fetches a device authorization by hashed user code.
	GetByUserCodeHash(ctx context.Context, hash string) (domain.DeviceCodeData, error)

	// GetDeviceCodeByID fetches a device authorization by record id.
	GetDeviceCodeByID(ctx context.Context, id string) (domain.DeviceCodeData, error)

	// CreateDeviceCode inserts a fresh pending authorization.
	CreateDeviceCode(ctx context.Context, d domain.DeviceCodeData) error

	// UpdateDeviceCode rewrites the status/bound-user fields.
	UpdateDeviceCode(ctx context.Context, d domain.DeviceCodeData) error

	// DeleteExpired is housekeeping.
	DeleteExpired(ctx context.Context) error
}

type Tenants interface {
	// GetTenantByID fetches a tenant by id.
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// GetTenantByDomain resolves a tenant from a login email domain.
	GetTenantByDomain(ctx context.Context, emailDomain string) (domain.Tenant, error)

	// CreateTenant inserts a tenant together with its password policy.
	CreateTenant(ctx context.Context, t domain.Tenant, policy domain.PasswordPolicy) error

	// GetPasswordPolicy returns the tenant's password policy.
	GetPasswordPolicy(ctx context.Context, tenantID string) (domain.PasswordPolicy, error)

	// GetSystemSettings returns the installation-wide settings row.
	GetSystemSettings(ctx context.Context) (domain.SystemSettings, error)
}

type Terms interface {
	// AddAcceptance records a terms-and-conditions acceptance.
	AddAcceptance(ctx context.Context, rec domain.TermsAcceptance) error

	// HasAcceptance reports whether the user has accepted the tenant's terms.
	HasAcceptance(ctx context.Context, userID, tenantID string) (bool, error)
}

type AuthEvents interface {
	// Append writes an authentication-history / security event row.
	Append(ctx context.Context, ev domain.AuthEvent) error

	// ListByTenant returns events for a tenant, newest first.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.AuthEvent, error)

	// ListRecent returns the newest events across all tenants.
	ListRecent(ctx context.Context, limit int) ([]domain.AuthEvent, error)
}
