// Package jwtx is the token-signer collaborator: it builds and signs the IAM
// portal user JWT and the short-lived pre-authentication JWT.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default TTLs. Portal tokens are deliberately short; the portal refreshes
// silently while the admin session is active.
const (
	DefaultPortalTokenTTL   = 15 * time.Minute
	DefaultPreAuthnTokenTTL = 5 * time.Minute
)

// Token use markers distinguish the two token families this signer issues.
const (
	UsePortal   = "portal"
	UsePreAuthn = "pre_authn"
)

// Claims are the claims embedded in veridian-issued JWTs. Additive changes
// only, to preserve compatibility with deployed verifiers.
type Claims struct {
	jwt.RegisteredClaims

	// TokenUse is "portal" or "pre_authn".
	TokenUse string `json:"token_use"`

	// TenantID is the tenant the subject belongs to.
	TenantID string `json:"tid,omitempty"`

	// ManagementTenantID is the tenant the subject administers.
	ManagementTenantID string `json:"mat,omitempty"`

	// Scopes are the granted permission scope names.
	Scopes []string `json:"scopes,omitempty"`

	// Email and Name carry display identity for the portal UI.
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	// SessionToken links a pre-authn token back to its flow instance.
	SessionToken string `json:"stk,omitempty"`
}

// NewPortalUserClaims builds the claims for a completed portal login.
func NewPortalUserClaims(
	subject, tenantID, managementTenantID string,
	scopes []string,
	email, name string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenUse:           UsePortal,
		TenantID:           tenantID,
		ManagementTenantID: managementTenantID,
		Scopes:             scopes,
		Email:              email,
		Name:               name,
	}
}

// NewPreAuthnClaims builds the claims for a mid-flow pre-authentication
// token, bound to one session token.
func NewPreAuthnClaims(subject, tenantID, sessionToken, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenUse:     UsePreAuthn,
		TenantID:     tenantID,
		SessionToken: sessionToken,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
