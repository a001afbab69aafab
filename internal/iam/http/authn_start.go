package http

import (
	"net/http"

	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/pkg/iamsdk"
)

// StartHandler bootstraps the logon and recovery flows.
type StartHandler struct {
	AuthService *service.AuthenticateService
}

// HandleStart handles POST /v1/authn/start.
func (h *StartHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.StartAuthenticationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TenantID == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.StartAuthentication(r.Context(), req.TenantID, req.ReturnToURI)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}

// HandleStartRecovery handles POST /v1/authn/recovery.
func (h *StartHandler) HandleStartRecovery(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.StartRecoveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TenantID == "" || req.Email == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.StartPasswordRecovery(r.Context(), req.TenantID, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}
