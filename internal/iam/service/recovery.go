package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/cryptox"
	"github.com/veridianhq/veridian/pkg/slogx"
)

// HandleForgotPassword handles the FORGOT_PASSWORD entry step: it mints a
// single-use reset token, advances the flow to VALIDATE_PASSWORD_RESET_TOKEN
// and dispatches the reset mail. With useRecoveryEmail set, the mail goes to
// the user's verified recovery address instead of the primary one.
func (s *AuthenticateService) HandleForgotPassword(
	ctx context.Context,
	sessionToken, language string,
	useRecoveryEmail bool,
) (*domain.AuthenticationResult, error) {
	l := slogx.FromContext(ctx)

	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateForgotPassword)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return wrongStep(sessionToken), nil
	}

	// Resolve the target user. These are soft failures here; unlike direct
	// authentication, the recovery flow reports them as coded results.
	user, err := s.Store.Users().GetUserByID(ctx, cur.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return softError(cur, domain.ECUserNotFound), nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Enabled || user.MarkForDelete {
		return softError(cur, domain.ECUserNotUsable), nil
	}

	destination := user.Email
	if useRecoveryEmail {
		email, verified, err := s.Store.Users().GetRecoveryEmail(ctx, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return softError(cur, domain.ECNoRecoveryEmail), nil
			}
			return nil, fmt.Errorf("load recovery email: %w", err)
		}
		if !verified {
			return softError(cur, domain.ECNoRecoveryEmail), nil
		}
		destination = email
	}

	// Mint and persist the single-use reset token.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	hash := cryptox.FingerprintToken(token)
	expires := s.now().Add(s.resetTTL())
	if err := s.Store.ResetTokens().SaveToken(ctx, user.ID, hash, store.TokenPasswordReset, expires); err != nil {
		return nil, fmt.Errorf("save reset token: %w", err)
	}

	// Advance to the token validation step.
	next := s.stateAfter(states, cur, domain.StateValidateResetToken)
	next.UserID = user.ID
	if err := s.advanceStates(ctx, *cur, next); err != nil {
		return nil, err
	}

	if language == "" {
		language = user.PreferredLanguage
	}
	if err := s.Mailer.SendPasswordReset(ctx, destination, token, language); err != nil {
		return nil, fmt.Errorf("send reset mail: %w", err)
	}

	l.Info("password reset initiated", slog.String("user_id", user.ID), slog.Bool("recovery_email", useRecoveryEmail))
	return &domain.AuthenticationResult{State: &next}, nil
}

// ValidatePasswordResetToken handles the VALIDATE_PASSWORD_RESET_TOKEN step.
// The token is consumed exactly once; a second call with the same token is
// an unknown-token failure.
func (s *AuthenticateService) ValidatePasswordResetToken(
	ctx context.Context,
	token, sessionToken, language string,
) (*domain.AuthenticationResult, error) {
	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateValidateResetToken)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return wrongStep(sessionToken), nil
	}

	hash := cryptox.FingerprintToken(token)
	user, err := s.Store.ResetTokens().GetUserByToken(ctx, hash, store.TokenPasswordReset)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return softError(cur, domain.ECResetTokenInvalid), nil
		}
		return nil, fmt.Errorf("resolve reset token: %w", err)
	}
	if !user.Enabled || user.MarkForDelete {
		return softError(cur, domain.ECUserNotUsable), nil
	}

	// Single use: consume before advancing.
	if err := s.Store.ResetTokens().DeleteToken(ctx, hash, store.TokenPasswordReset); err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	next := s.stateAfter(states, cur, domain.StateRotatePassword)
	next.UserID = user.ID
	if err := s.advanceStates(ctx, *cur, next); err != nil {
		return nil, err
	}

	return s.finishTransition(ctx, states, next, user, language)
}

// ValidateEmail handles the VALIDATE_EMAIL step: it consumes the mailed
// verification token, marks the primary email verified and advances.
func (s *AuthenticateService) ValidateEmail(
	ctx context.Context,
	token, sessionToken, language string,
) (*domain.AuthenticationResult, error) {
	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateValidateEmail)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return wrongStep(sessionToken), nil
	}

	hash := cryptox.FingerprintToken(token)
	user, err := s.Store.ResetTokens().GetUserByToken(ctx, hash, store.TokenEmailVerification)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return softError(cur, domain.ECResetTokenInvalid), nil
		}
		return nil, fmt.Errorf("resolve verification token: %w", err)
	}

	if err := s.Store.ResetTokens().DeleteToken(ctx, hash, store.TokenEmailVerification); err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	if err := s.Store.Users().SetEmailVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("mark email verified: %w", err)
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

	return s.finishTransition(ctx, states, next, user, language)
}

// stateAfter returns the state following cur with its name forced to the
// given step, creating a fresh row at the next order position when the flow
// has no downstream state yet.
func (s *AuthenticateService) stateAfter(
	states []domain.AuthenticationState,
	cur *domain.AuthenticationState,
	name domain.AuthStateName,
) domain.AuthenticationState {
	if following := followingState(states, cur); following != nil {
		next := *following
		next.Name = name
		return next
	}
	return domain.AuthenticationState{
		SessionToken: cur.SessionToken,
		Name:         name,
		Order:        cur.Order + 10,
		Status:       domain.StatusIncomplete,
		ExpiresAt:    s.now().Add(s.stateTTL()),
		TenantID:     cur.TenantID,
		UserID:       cur.UserID,
		ReturnToURI:  cur.ReturnToURI,
	}
}
