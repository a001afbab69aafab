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

// RecoveryContext carries optional flow context into AuthenticateUser.
type RecoveryContext struct {
	IsRecovery bool
	Language   string
}

// AuthenticateUser handles the ENTER_PASSWORD step.
//
// Account existence and enablement failures are thrown (hard channel); the
// transport collapses them into one generic failure so callers cannot probe
// which accounts exist. Everything else surfaces as a coded result on the
// soft channel.
func (s *AuthenticateService) AuthenticateUser(
	ctx context.Context,
	email, password, tenantID, sessionToken string,
	recovery RecoveryContext,
) (*domain.AuthenticationResult, error) {
	l := slogx.FromContext(ctx)

	// 1. Load the flow and check the step currently due.
	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateEnterPassword)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return wrongStep(sessionToken), nil
	}

	// 2. Resolve the user. Fatal conditions throw. An empty tenant defers to
	// the tenant bound into the flow when it was started.
	if tenantID == "" {
		tenantID = cur.TenantID
	}
	user, err := s.Store.Users().GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	switch {
	case user.MarkForDelete:
		return nil, ErrUserDeleted
	case !user.Enabled:
		return nil, ErrUserDisabled
	case user.Locked:
		return nil, ErrUserLocked
	}

	// 3. Validate credentials (password and duress password).
	v := s.validatePassword(user, password)
	if !v.Valid {
		// Current state stays as-is; the caller may retry.
		return &domain.AuthenticationResult{State: cur, Error: v.Err}, nil
	}

	// 4. Compose the rest of the flow from the user record: TOTP when a
	// secret is enrolled, forced rotation, email verification, and terms
	// acceptance splice in between the password step and the terminal
	// redirect. Steps the flow already plans are not duplicated. The duress
	// branch renames the terminal step so security-event dispatch records a
	// coerced login; the coerced user still walks the same steps.
	pending, err := s.pendingSteps(ctx, user, states)
	if err != nil {
		return nil, err
	}
	if v.Duress {
		l.Warn("duress credential used", slog.String("user_id", user.ID), slog.String("tenant_id", tenantID))
	}

	// 5. Persist the transition.
	next, err := s.spliceStates(ctx, states, *cur, pending, user.ID, v.Duress)
	if err != nil {
		return nil, err
	}

	// 6. Branch on what the next step needs.
	return s.finishTransition(ctx, states, next, user, recovery.Language)
}

// validatePassword produces the transient ValidationResult for one credential
// check: the real password, then the duress password if one is configured.
func (s *AuthenticateService) validatePassword(user domain.User, password string) domain.ValidationResult {
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err == nil {
		return domain.ValidationResult{Valid: true}
	}
	if user.DuressPasswordHash != nil {
		if err := cryptox.VerifyPassword(password, *user.DuressPasswordHash); err == nil {
			return domain.ValidationResult{Valid: true, Duress: true}
		}
	}
	return domain.ValidationResult{Valid: false, Err: domain.ECInvalidCredentials.Detail()}
}

// pendingSteps derives the extra steps this user still owes before the flow
// may complete, dropping any the flow already plans. Order matters: the
// second factor comes first, then the forced rotation, then verification and
// terms.
func (s *AuthenticateService) pendingSteps(
	ctx context.Context,
	user domain.User,
	states []domain.AuthenticationState,
) ([]domain.AuthStateName, error) {
	var needed []domain.AuthStateName
	if user.MFASecret != nil && *user.MFASecret != "" {
		needed = append(needed, domain.StateValidateTOTP)
	}
	if user.ForcePasswordReset {
		needed = append(needed, domain.StateRotatePassword)
	}
	if !user.EmailVerified {
		needed = append(needed, domain.StateValidateEmail)
	}
	accepted, err := s.Store.Terms().HasAcceptance(ctx, user.ID, user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load terms acceptance: %w", err)
	}
	if !accepted {
		needed = append(needed, domain.StateAcceptTerms)
	}

	planned := make(map[domain.AuthStateName]bool, len(states))
	for _, st := range states {
		planned[st.Name] = true
	}
	out := needed[:0]
	for _, name := range needed {
		if !planned[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// finishTransition applies the next-state branching shared by every
// advancing operation: password-policy attachment for ROTATE_PASSWORD,
// verification mail for VALIDATE_EMAIL, and completion handling for the
// success-terminal redirect states. It receives the original loaded state
// list; the freshly computed next state travels separately.
func (s *AuthenticateService) finishTransition(
	ctx context.Context,
	states []domain.AuthenticationState,
	next domain.AuthenticationState,
	user domain.User,
	language string,
) (*domain.AuthenticationResult, error) {
	result := &domain.AuthenticationResult{State: &next}

	switch next.Name {
	case domain.StateRotatePassword:
		policy, err := s.Store.Tenants().GetPasswordPolicy(ctx, next.TenantID)
		if err != nil {
			return nil, fmt.Errorf("load password policy: %w", err)
		}
		result.PasswordPolicy = &policy

	case domain.StateValidateEmail:
		if err := s.sendEmailVerification(ctx, user, language); err != nil {
			return nil, err
		}

	case domain.StateRedirectToPortal, domain.StateRedirectToApp,
		domain.StateDuressLogon, domain.StateSendEventSuccess, domain.StateSendEventDuress:
		// Duress variants still complete the login; the user under coercion
		// must not be able to tell the flow apart from a normal one.
		token, err := s.completeAuthentication(ctx, states, next, user)
		if err != nil {
			return nil, err
		}
		result.AccessToken = token
	}

	return result, nil
}

// sendEmailVerification mints a single-use verification token and hands the
// message to the mail collaborator.
func (s *AuthenticateService) sendEmailVerification(ctx context.Context, user domain.User, language string) error {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	hash := cryptox.FingerprintToken(token)
	expires := s.now().Add(s.resetTTL())
	if err := s.Store.ResetTokens().SaveToken(ctx, user.ID, hash, store.TokenEmailVerification, expires); err != nil {
		return fmt.Errorf("save verification token: %w", err)
	}
	if language == "" {
		language = user.PreferredLanguage
	}
	if err := s.Mailer.SendEmailVerification(ctx, user.Email, token, language); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}
