package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/pkg/idx"
	"github.com/veridianhq/veridian/pkg/jwtx"
	"github.com/veridianhq/veridian/pkg/slogx"
)

// completeAuthentication runs when a flow reaches a success-terminal redirect
// state: it signs the portal JWT, appends the authentication-history row and
// dispatches the security event. It receives the original loaded state list
// plus the freshly computed next state as separate values; completion must
// not depend on in-place mutation of a shared slice.
func (s *AuthenticateService) completeAuthentication(
	ctx context.Context,
	states []domain.AuthenticationState,
	next domain.AuthenticationState,
	user domain.User,
) (string, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	// A duress marker anywhere in the flow turns the success event into the
	// silent alarm. The marker usually sits on a completed mid-flow state;
	// the next state carries it only when the redirect itself was rewritten.
	kind := domain.EventSuccessLogon
	if next.Name.IsDuress() {
		kind = domain.EventDuressLogon
	}
	for _, st := range states {
		if st.Name.IsDuress() {
			kind = domain.EventDuressLogon
			break
		}
	}

	ev := domain.AuthEvent{
		ID:           idx.New().String(),
		TenantID:     next.TenantID,
		UserID:       user.ID,
		SessionToken: next.SessionToken,
		Kind:         kind,
		CreatedAt:    now,
	}
	if err := s.Store.AuthEvents().Append(ctx, ev); err != nil {
		return "", fmt.Errorf("append auth event: %w", err)
	}

	// A device-binding flow carries the grant id it was started for; the
	// redirect back to the application is the moment the grant resolves.
	if next.PreAuthToken != "" {
		if err := s.ApproveDeviceAuthorization(ctx, next.PreAuthToken, user.ID); err != nil {
			return "", fmt.Errorf("approve device grant: %w", err)
		}
	}

	claims := jwtx.NewPortalUserClaims(
		user.ID,
		user.TenantID,
		user.TenantID,
		user.Scopes,
		user.Email,
		user.Name,
		s.Issuer,
		s.portalTTL(),
		now,
	)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign portal token: %w", err)
	}

	l.Info("authentication completed",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", next.TenantID),
		slog.String("event_kind", string(kind)),
	)
	return token, nil
}

// SignPreAuthnToken issues the short-lived mid-flow token some steps hand to
// the client to prove flow continuity.
func (s *AuthenticateService) SignPreAuthnToken(userID, tenantID, sessionToken string) (string, error) {
	claims := jwtx.NewPreAuthnClaims(userID, tenantID, sessionToken, s.Issuer, jwtx.DefaultPreAuthnTokenTTL, s.now())
	return s.Signer.Sign(claims)
}
