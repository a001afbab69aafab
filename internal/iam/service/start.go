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

// StartAuthentication bootstraps a password logon flow for a tenant and
// returns its first step. The caller keeps the session token for every
// subsequent step submission.
func (s *AuthenticateService) StartAuthentication(
	ctx context.Context,
	tenantID, returnToURI string,
) (*domain.AuthenticationResult, error) {
	sessionToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	expires := s.now().Add(s.stateTTL())
	states := []domain.AuthenticationState{
		{SessionToken: sessionToken, Name: domain.StateEnterPassword, Order: 10, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: tenantID, ReturnToURI: returnToURI},
		{SessionToken: sessionToken, Name: domain.StateRedirectToPortal, Order: 20, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: tenantID, ReturnToURI: returnToURI},
	}
	if err := s.Store.AuthStates().CreateStates(ctx, states); err != nil {
		return nil, fmt.Errorf("create logon states: %w", err)
	}

	slogx.FromContext(ctx).Info("authentication started",
		slog.String("tenant_id", tenantID),
	)
	return &domain.AuthenticationResult{State: &states[0]}, nil
}

// StartPasswordRecovery bootstraps the self-service recovery flow for the
// account behind the given email. The chain walks token validation and a
// forced rotation before redirecting into the portal. Unknown emails still
// get a flow; the failure only surfaces, coded, at the next step, so the
// endpoint does not leak which accounts exist.
func (s *AuthenticateService) StartPasswordRecovery(
	ctx context.Context,
	tenantID, email string,
) (*domain.AuthenticationResult, error) {
	sessionToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	var userID string
	if user, err := s.Store.Users().GetUserByEmail(ctx, tenantID, email); err == nil {
		userID = user.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	expires := s.now().Add(s.stateTTL())
	states := []domain.AuthenticationState{
		{SessionToken: sessionToken, Name: domain.StateForgotPassword, Order: 10, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: tenantID, UserID: userID},
		{SessionToken: sessionToken, Name: domain.StateValidateResetToken, Order: 20, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: tenantID, UserID: userID},
		{SessionToken: sessionToken, Name: domain.StateRotatePassword, Order: 30, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: tenantID, UserID: userID},
		{SessionToken: sessionToken, Name: domain.StateRedirectToPortal, Order: 40, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: tenantID, UserID: userID},
	}
	if err := s.Store.AuthStates().CreateStates(ctx, states); err != nil {
		return nil, fmt.Errorf("create recovery states: %w", err)
	}

	slogx.FromContext(ctx).Info("password recovery started",
		slog.String("tenant_id", tenantID),
	)
	return &domain.AuthenticationResult{State: &states[0]}, nil
}
