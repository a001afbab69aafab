package http

import (
	"net/http"

	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/pkg/iamsdk"
)

// PasswordHandler serves the ENTER_PASSWORD step.
type PasswordHandler struct {
	AuthService *service.AuthenticateService
}

// HandlePost handles POST /v1/authn/password.
func (h *PasswordHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	var req iamsdk.PasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionToken == "" || req.Email == "" || req.Password == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.AuthenticateUser(r.Context(),
		req.Email, req.Password, "", req.SessionToken,
		service.RecoveryContext{Language: req.Language},
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStepResult(w, res)
}
