package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/cryptox"
	"github.com/veridianhq/veridian/pkg/slogx"
)

// HandleUserCodeInput handles the user-code entry of the OAuth device
// authorization flow. A valid pending code starts a fresh flow instance
// whose first step is ENTER_EMAIL, binding a user identity to the grant.
func (s *AuthenticateService) HandleUserCodeInput(
	ctx context.Context,
	userCode string,
) (*domain.AuthenticationResult, error) {
	hash := cryptox.FingerprintToken(userCode)

	data, err := s.Store.DeviceCodes().GetByUserCodeHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &domain.AuthenticationResult{Error: domain.ECDeviceCodeNotFound.Detail()}, nil
		}
		return nil, fmt.Errorf("load device code: %w", err)
	}
	if s.now().After(data.ExpiresAt) {
		return &domain.AuthenticationResult{Error: domain.ECDeviceCodeExpired.Detail()}, nil
	}
	if data.Resolved() {
		return &domain.AuthenticationResult{Error: domain.ECDeviceCodeResolved.Detail()}, nil
	}

	// Start the binding flow. The device-code id rides along in the state
	// rows so completion can approve the right grant.
	sessionToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	expires := s.now().Add(s.stateTTL())
	states := []domain.AuthenticationState{
		{SessionToken: sessionToken, Name: domain.StateEnterEmail, Order: 10, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: data.TenantID, PreAuthToken: data.ID},
		{SessionToken: sessionToken, Name: domain.StateEnterPassword, Order: 20, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: data.TenantID, PreAuthToken: data.ID},
		{SessionToken: sessionToken, Name: domain.StateRedirectToApp, Order: 30, Status: domain.StatusIncomplete, ExpiresAt: expires, TenantID: data.TenantID, PreAuthToken: data.ID},
	}
	if err := s.Store.AuthStates().CreateStates(ctx, states); err != nil {
		return nil, fmt.Errorf("create device flow states: %w", err)
	}

	return &domain.AuthenticationResult{State: &states[0]}, nil
}

// HandleEmailInput handles the ENTER_EMAIL step of the device-binding flow.
// The email resolves to a tenant account and the flow advances to the
// password step with the identity bound. Unknown emails advance anyway so the
// endpoint does not reveal which accounts exist; the password step then fails
// with invalid credentials.
func (s *AuthenticateService) HandleEmailInput(
	ctx context.Context,
	email, sessionToken string,
) (*domain.AuthenticationResult, error) {
	states, cur, err := s.loadStatesExpecting(ctx, sessionToken, domain.StateEnterEmail)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return wrongStep(sessionToken), nil
	}

	var userID string
	if user, err := s.Store.Users().GetUserByEmail(ctx, cur.TenantID, email); err == nil {
		userID = user.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	following := followingState(states, cur)
	if following == nil {
		return nil, fmt.Errorf("session %q has no state after order %d", sessionToken, cur.Order)
	}
	next := *following
	next.UserID = userID
	if err := s.advanceStates(ctx, *cur, next); err != nil {
		return nil, err
	}

	return &domain.AuthenticationResult{State: &next}, nil
}

// StartDeviceAuthorization registers a fresh pending device-code grant and
// returns the short user code for the secondary device. The store only ever
// sees the code's fingerprint.
func (s *AuthenticateService) StartDeviceAuthorization(
	ctx context.Context,
	clientID, tenantID string,
) (domain.DeviceCodeData, string, error) {
	userCode, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return domain.DeviceCodeData{}, "", fmt.Errorf("generate user code: %w", err)
	}

	data := domain.DeviceCodeData{
		ID:           uuid.NewString(),
		UserCodeHash: cryptox.FingerprintToken(userCode),
		ClientID:     clientID,
		TenantID:     tenantID,
		Status:       domain.DevicePending,
		ExpiresAt:    s.now().Add(s.stateTTL()),
	}
	if err := s.Store.DeviceCodes().CreateDeviceCode(ctx, data); err != nil {
		return domain.DeviceCodeData{}, "", fmt.Errorf("create device code: %w", err)
	}
	return data, userCode, nil
}

// ApproveDeviceAuthorization binds an authenticated user to a pending grant
// and flips it to APPROVED. Already-resolved grants are not re-enterable.
func (s *AuthenticateService) ApproveDeviceAuthorization(
	ctx context.Context,
	deviceCodeID, userID string,
) error {
	l := slogx.FromContext(ctx)

	data, err := s.Store.DeviceCodes().GetDeviceCodeByID(ctx, deviceCodeID)
	if err != nil {
		return fmt.Errorf("load device code %s: %w", deviceCodeID, err)
	}
	if data.Resolved() {
		return fmt.Errorf("device code %s already resolved", deviceCodeID)
	}

	data.UserID = userID
	data.Status = domain.DeviceApproved
	if err := s.Store.DeviceCodes().UpdateDeviceCode(ctx, data); err != nil {
		return fmt.Errorf("approve device code: %w", err)
	}

	l.Info("device authorization approved",
		slog.String("device_code_id", deviceCodeID),
		slog.String("user_id", userID),
	)
	return nil
}
