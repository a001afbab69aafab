package http

import (
	"net/http"

	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/pkg/iamsdk"
)

// StepsHandler serves the mid-flow steps that follow ENTER_PASSWORD: TOTP,
// recovery, password rotation, terms and email verification.
type StepsHandler struct {
	AuthService *service.AuthenticateService
}

// HandleTOTP handles POST /v1/authn/totp.
func (h *StepsHandler) HandleTOTP(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.TOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" || req.Code == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.ValidateTOTP(r.Context(), req.Code, req.SessionToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}

// HandleForgotPassword handles POST /v1/authn/forgot-password.
func (h *StepsHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.HandleForgotPassword(r.Context(), req.SessionToken, req.Language, req.UseRecoveryEmail)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}

// HandleResetToken handles POST /v1/authn/reset-token.
func (h *StepsHandler) HandleResetToken(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" || req.Token == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.ValidatePasswordResetToken(r.Context(), req.Token, req.SessionToken, req.Language)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}

// HandleRotatePassword handles POST /v1/authn/rotate-password.
func (h *StepsHandler) HandleRotatePassword(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.RotatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" || req.NewPassword == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.RotatePassword(r.Context(), req.NewPassword, req.SessionToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}

// HandleTerms handles POST /v1/authn/terms.
func (h *StepsHandler) HandleTerms(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.TermsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.AcceptTermsAndConditions(r.Context(), req.Accepted, req.SessionToken, req.Language)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}

// HandleValidateEmail handles POST /v1/authn/validate-email.
func (h *StepsHandler) HandleValidateEmail(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" || req.Token == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.ValidateEmail(r.Context(), req.Token, req.SessionToken, req.Language)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}

// HandleEnterEmail handles POST /v1/authn/email, the identity-binding step of
// the device flow.
func (h *StepsHandler) HandleEnterEmail(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" || req.Email == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.HandleEmailInput(r.Context(), req.Email, req.SessionToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}
