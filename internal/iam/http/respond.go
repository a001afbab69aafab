package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veridianhq/veridian/internal/iam/authz"
	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/pkg/httpx"
	"github.com/veridianhq/veridian/pkg/iamsdk"
	"github.com/veridianhq/veridian/pkg/slogx"
)

// decodeJSON parses the request body into dst, answering the request itself
// on failure. Returns false when the handler should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		iamsdk.ErrInvalidRequest.WriteError(w)
		return false
	}
	return true
}

// publicStateName is the state name as the wire sees it. Duress variants
// must not leave the server: anyone reading the response over the coerced
// user's shoulder gets the name a normal login would produce. The persisted
// rows and the dispatched event keep the distinction.
func publicStateName(st *domain.AuthenticationState) string {
	switch st.Name {
	case domain.StateSendEventDuress:
		return string(domain.StateSendEventSuccess)
	case domain.StateDuressLogon:
		if st.PreAuthToken != "" {
			return string(domain.StateRedirectToApp)
		}
		return string(domain.StateRedirectToPortal)
	}
	return string(st.Name)
}

// writeStepResult maps a flow step outcome onto the uniform wire shape.
func writeStepResult(w http.ResponseWriter, res *domain.AuthenticationResult) {
	body := iamsdk.StepResponse{
		AccessToken: res.AccessToken,
	}
	if res.State != nil {
		body.SessionToken = res.State.SessionToken
		body.State = publicStateName(res.State)
		body.ReturnToURI = res.State.ReturnToURI
	}
	if res.Error != nil {
		body.Error = &iamsdk.ErrorDetail{
			Code:        string(res.Error.Code),
			Title:       res.Error.Title,
			Description: res.Error.Description,
		}
	}
	if res.PasswordPolicy != nil {
		body.PasswordPolicy = &iamsdk.PasswordPolicy{
			MinLength:      res.PasswordPolicy.MinLength,
			RequireUpper:   res.PasswordPolicy.RequireUpper,
			RequireLower:   res.PasswordPolicy.RequireLower,
			RequireDigit:   res.PasswordPolicy.RequireDigit,
			RequireSymbol:  res.PasswordPolicy.RequireSymbol,
			RotationDays:   res.PasswordPolicy.RotationDays,
			HistoryEntries: res.PasswordPolicy.HistoryEntries,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, body)
}

// writeServiceError answers hard service failures. Account-condition
// sentinels collapse into one opaque 401 so the endpoint does not reveal
// whether an account exists, is disabled, locked or deleted.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrUserDisabled),
		errors.Is(err, service.ErrUserLocked),
		errors.Is(err, service.ErrUserDeleted):
		log.Warn("authentication rejected", "err", err)
		iamsdk.ErrUnauthorized.WriteError(w)
	default:
		log.Error("request failed", "err", err)
		iamsdk.ErrServerError.WriteError(w)
	}
}

// writeAdminError answers management-plane failures, mapping authorization
// denials onto 403 with the decision's coded detail.
func writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *authz.Error
	if errors.As(err, &denied) {
		body := *iamsdk.ErrForbidden
		if denied.Detail != nil {
			body.Description = denied.Detail.Description
		}
		body.WriteError(w)
		return
	}
	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	iamsdk.ErrServerError.WriteError(w)
}
