package service

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/cryptox"
)

// RotatePassword handles the ROTATE_PASSWORD step: it checks the new
// password against the tenant's policy, rewrites the stored hash, clears the
// force-reset flag and advances.
func (s *AuthenticateService) RotatePassword(
	ctx context.Context,
	newPassword, sessionToken string,
) (*domain.AuthenticationResult, error) {
	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateRotatePassword)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return wrongStep(sessionToken), nil
	}

	user, err := s.Store.Users().GetUserByID(ctx, cur.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return softError(cur, domain.ECUserNotFound), nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	policy, err := s.Store.Tenants().GetPasswordPolicy(ctx, cur.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load password policy: %w", err)
	}
	if !satisfiesPolicy(newPassword, policy) {
		result := softError(cur, domain.ECPasswordPolicy)
		result.PasswordPolicy = &policy
		return result, nil
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("update password hash: %w", err)
	}
	if user.ForcePasswordReset {
		if err := s.Store.Users().ClearForcePasswordReset(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("clear force reset: %w", err)
		}
	}

	following := followingState(states, cur)
	if following == nil {
		return nil, fmt.Errorf("session %q has no state after order %d", sessionToken, cur.Order)
	}
	next := *following
	next.UserID = user.ID
	if err := s.advanceStates(ctx, *cur, next); err != nil {
		return nil, err
	}

	return s.finishTransition(ctx, states, next, user, "")
}

func satisfiesPolicy(password string, p domain.PasswordPolicy) bool {
	if len(password) < p.MinLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if p.RequireUpper && !upper {
		return false
	}
	if p.RequireLower && !lower {
		return false
	}
	if p.RequireDigit && !digit {
		return false
	}
	if p.RequireSymbol && !symbol {
		return false
	}
	return true
}
