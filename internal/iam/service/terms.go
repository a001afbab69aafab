package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/slogx"
)

// AcceptTermsAndConditions handles the ACCEPT_TERMS_AND_CONDITIONS step.
// Accepting records the acceptance and advances the flow. Declining is fatal
// to the whole session, not retryable: the current state is rewritten to the
// terminal ERROR state.
func (s *AuthenticateService) AcceptTermsAndConditions(
	ctx context.Context,
	accepted bool,
	sessionToken, language string,
) (*domain.AuthenticationResult, error) {
	l := slogx.FromContext(ctx)

	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateAcceptTerms)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return wrongStep(sessionToken), nil
	}

	if !accepted {
		failed, err := s.failSession(ctx, *cur)
		if err != nil {
			return nil, err
		}
		l.Info("terms declined, session terminated", slog.String("session_token", sessionToken))
		return &domain.AuthenticationResult{State: &failed, Error: domain.ECTermsDeclined.Detail()}, nil
	}

	user, err := s.Store.Users().GetUserByID(ctx, cur.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return softError(cur, domain.ECUserNotFound), nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	rec := domain.TermsAcceptance{
		UserID:     user.ID,
		TenantID:   cur.TenantID,
		AcceptedAt: s.now(),
	}
	if err := s.Store.Terms().AddAcceptance(ctx, rec); err != nil {
		return nil, fmt.Errorf("record terms acceptance: %w", err)
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
