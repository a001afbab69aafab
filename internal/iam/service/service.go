// Package service implements the user authentication state machine: the
// ordered login, recovery and device-authorization flows, credential and
// duress validation, and completion handling.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/jwtx"
)

// Hard-channel errors for AuthenticateUser. Account existence and enablement
// failures are thrown rather than returned so the transport can collapse them
// into one generic failure without echoing which condition was hit.
var (
	ErrUserNotFound = errors.New("service: user not found")
	ErrUserDisabled = errors.New("service: user disabled")
	ErrUserLocked   = errors.New("service: user locked")
	ErrUserDeleted  = errors.New("service: user marked for deletion")
)

// Mailer is the outbound mail collaborator. Delivery mechanics live behind
// it; this service only decides when a message is due.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token, language string) error
	SendEmailVerification(ctx context.Context, email, token, language string) error
}

// AuthenticateService drives a user through a named, ordered sequence of
// authentication steps. All flow state lives in the store; the service holds
// no mutable state between calls.
type AuthenticateService struct {
	Store  store.Store
	Signer jwtx.Signer
	Mailer Mailer

	Issuer         string
	PortalTokenTTL time.Duration
	ResetTokenTTL  time.Duration
	StateTTL       time.Duration

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *AuthenticateService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthenticateService) portalTTL() time.Duration {
	if s.PortalTokenTTL > 0 {
		return s.PortalTokenTTL
	}
	return jwtx.DefaultPortalTokenTTL
}

func (s *AuthenticateService) resetTTL() time.Duration {
	if s.ResetTokenTTL > 0 {
		return s.ResetTokenTTL
	}
	return 30 * time.Minute
}

func (s *AuthenticateService) stateTTL() time.Duration {
	if s.StateTTL > 0 {
		return s.StateTTL
	}
	return 15 * time.Minute
}

// currentState returns the lowest-order INCOMPLETE state, the step currently
// due. The list comes back from the store ordered ascending, so the first
// incomplete entry is it.
func currentState(states []domain.AuthenticationState) *domain.AuthenticationState {
	for i := range states {
		if states[i].Status == domain.StatusIncomplete {
			return &states[i]
		}
	}
	return nil
}

// followingState returns the state ordered immediately after cur, or nil.
func followingState(states []domain.AuthenticationState, cur *domain.AuthenticationState) *domain.AuthenticationState {
	for i := range states {
		if states[i].Order > cur.Order {
			return &states[i]
		}
	}
	return nil
}

// wrongStep is the no-mutation soft failure shared by every step-specific
// operation: an ERROR-named state value (never persisted) plus the wrong-step
// error detail.
func wrongStep(sessionToken string) *domain.AuthenticationResult {
	return &domain.AuthenticationResult{
		State: &domain.AuthenticationState{
			SessionToken: sessionToken,
			Name:         domain.StateError,
			Status:       domain.StatusIncomplete,
		},
		Error: domain.ECWrongStep.Detail(),
	}
}

// softError returns the current state unchanged together with an error
// detail, for recoverable failures the caller may retry.
func softError(cur *domain.AuthenticationState, code domain.ErrorCode) *domain.AuthenticationResult {
	return &domain.AuthenticationResult{State: cur, Error: code.Detail()}
}

// loadStatesExpecting loads the full ordered state list for the session and
// checks that the step currently due carries the expected name. A nil result
// state means the wrong-step contract applies.
func (s *AuthenticateService) loadStatesExpecting(
	ctx context.Context,
	sessionToken string,
	expected domain.AuthStateName,
) ([]domain.AuthenticationState, *domain.AuthenticationState, error) {
	states, err := s.Store.AuthStates().ListBySessionToken(ctx, sessionToken)
	if err != nil {
		return nil, nil, fmt.Errorf("load authentication states: %w", err)
	}
	cur := currentState(states)
	if cur == nil || cur.Name != expected {
		return states, nil, nil
	}
	return states, cur, nil
}

// advanceStates completes cur and splices next in at its order position. The
// rows are deleted and recreated inside one transaction rather than updated
// in place; some backing stores cannot partially update composite-keyed rows,
// and the transaction keeps the observable before/after atomic here.
func (s *AuthenticateService) advanceStates(ctx context.Context, cur, next domain.AuthenticationState) error {
	done := cur
	done.Status = domain.StatusComplete
	next.Status = domain.StatusIncomplete

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthStates().DeleteState(ctx, cur); err != nil {
			return fmt.Errorf("delete current state: %w", err)
		}
		if err := tx.AuthStates().DeleteState(ctx, next); err != nil {
			return fmt.Errorf("delete next state: %w", err)
		}
		if err := tx.AuthStates().CreateStates(ctx, []domain.AuthenticationState{done, next}); err != nil {
			return fmt.Errorf("recreate states: %w", err)
		}
		return nil
	})
}

// spliceStates completes cur and rebuilds the remainder of the flow: the
// inserted step names go in directly after cur, the already-planned tail is
// renumbered behind them, and every rebuilt row carries the bound user. All
// rows are deleted and recreated inside one transaction, same as
// advanceStates. Under duress the final step is renamed to its duress
// variant; the mid-flow steps stay as planned so the coerced user walks the
// same sequence a normal login would. Returns the step now due.
func (s *AuthenticateService) spliceStates(
	ctx context.Context,
	states []domain.AuthenticationState,
	cur domain.AuthenticationState,
	inserted []domain.AuthStateName,
	userID string,
	duress bool,
) (domain.AuthenticationState, error) {
	done := cur
	done.Status = domain.StatusComplete
	done.UserID = userID

	var tail []domain.AuthenticationState
	for _, st := range states {
		if st.Order > cur.Order {
			tail = append(tail, st)
		}
	}
	if len(inserted) == 0 && len(tail) == 0 {
		return domain.AuthenticationState{}, fmt.Errorf("session %q has no state after order %d", cur.SessionToken, cur.Order)
	}

	ord := cur.Order
	rebuilt := make([]domain.AuthenticationState, 0, len(inserted)+len(tail))
	for _, name := range inserted {
		ord += 10
		rebuilt = append(rebuilt, domain.AuthenticationState{
			SessionToken: cur.SessionToken,
			Name:         name,
			Order:        ord,
			Status:       domain.StatusIncomplete,
			ExpiresAt:    cur.ExpiresAt,
			TenantID:     cur.TenantID,
			UserID:       userID,
			PreAuthToken: cur.PreAuthToken,
			ReturnToURI:  cur.ReturnToURI,
		})
	}
	for _, st := range tail {
		ord += 10
		st.Order = ord
		st.Status = domain.StatusIncomplete
		st.UserID = userID
		rebuilt = append(rebuilt, st)
	}
	if duress {
		last := &rebuilt[len(rebuilt)-1]
		last.Name = last.Name.DuressVariant()
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthStates().DeleteState(ctx, cur); err != nil {
			return fmt.Errorf("delete current state: %w", err)
		}
		for _, st := range tail {
			if err := tx.AuthStates().DeleteState(ctx, st); err != nil {
				return fmt.Errorf("delete planned state: %w", err)
			}
		}
		rows := append([]domain.AuthenticationState{done}, rebuilt...)
		if err := tx.AuthStates().CreateStates(ctx, rows); err != nil {
			return fmt.Errorf("recreate states: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.AuthenticationState{}, err
	}
	return rebuilt[0], nil
}

// failSession rewrites the current state to the terminal ERROR state. Used
// when a mandatory step is declined and the whole flow dies with it.
func (s *AuthenticateService) failSession(ctx context.Context, cur domain.AuthenticationState) (domain.AuthenticationState, error) {
	failed := cur
	failed.Name = domain.StateError
	failed.Status = domain.StatusIncomplete

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthStates().DeleteState(ctx, cur); err != nil {
			return err
		}
		return tx.AuthStates().CreateStates(ctx, []domain.AuthenticationState{failed})
	})
	if err != nil {
		return domain.AuthenticationState{}, fmt.Errorf("fail session: %w", err)
	}
	return failed, nil
}
