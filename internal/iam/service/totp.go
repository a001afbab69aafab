package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
)

// ValidateTOTP handles the VALIDATE_TOTP step: it checks a one-time code
// against the user's enrolled TOTP secret and advances on success. An
// invalid code leaves the current state untouched so the caller may retry.
func (s *AuthenticateService) ValidateTOTP(
	ctx context.Context,
	code, sessionToken string,
) (*domain.AuthenticationResult, error) {
	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateValidateTOTP)
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
	if user.MFASecret == nil || *user.MFASecret == "" {
		return softError(cur, domain.ECInvalidCredentials), nil
	}

	if !totp.Validate(code, *user.MFASecret) {
		return &domain.AuthenticationResult{State: cur, Error: domain.ECInvalidCredentials.Detail()}, nil
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
