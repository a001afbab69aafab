package http

import (
	"net/http"

	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/pkg/httpx"
	"github.com/veridianhq/veridian/pkg/iamsdk"
)

// DeviceHandler serves the device-authorization user-code entry.
type DeviceHandler struct {
	AuthService *service.AuthenticateService
}

// HandleStart handles POST /v1/device/start. The initiating device registers
// a pending grant and receives the user code to display.
func (h *DeviceHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.DeviceAuthorizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClientID == "" || req.TenantID == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	data, userCode, err := h.AuthService.StartDeviceAuthorization(r.Context(), req.ClientID, req.TenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, iamsdk.DeviceAuthorizationResponse{
		DeviceCode: data.ID,
		UserCode:   userCode,
		ExpiresAt:  data.ExpiresAt,
	})
}

// HandleUserCode handles POST /v1/device/code.
func (h *DeviceHandler) HandleUserCode(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.UserCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserCode == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.HandleUserCodeInput(r.Context(), req.UserCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}
