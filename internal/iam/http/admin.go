package http

import (
	"net/http"
	"strconv"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/pkg/httpx"
	"github.com/veridianhq/veridian/pkg/iamsdk"
)

// AdminHandler serves the management plane: tenants, users and the
// authentication history. Every endpoint requires a portal bearer token; the
// wrapped service operations enforce scope and tenant boundaries.
type AdminHandler struct {
	AdminService *service.AdminService
}

// HandleGetTenant handles GET /v1/admin/tenants/{id}.
func (h *AdminHandler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		iamsdk.ErrInvalidToken.WriteError(w)
		return
	}

	tenant, err := h.AdminService.GetTenant(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, iamsdk.TenantResponse{
		ID:        tenant.ID,
		Name:      tenant.Name,
		Domain:    tenant.Domain,
		CreatedAt: tenant.CreatedAt,
	})
}

// HandleCreateTenant handles POST /v1/admin/tenants.
func (h *AdminHandler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		iamsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req iamsdk.CreateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.Domain == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	tenant, err := h.AdminService.CreateTenant(r.Context(), p,
		domain.Tenant{Name: req.Name, Domain: req.Domain},
		domain.PasswordPolicy{
			MinLength:      req.Policy.MinLength,
			RequireUpper:   req.Policy.RequireUpper,
			RequireLower:   req.Policy.RequireLower,
			RequireDigit:   req.Policy.RequireDigit,
			RequireSymbol:  req.Policy.RequireSymbol,
			RotationDays:   req.Policy.RotationDays,
			HistoryEntries: req.Policy.HistoryEntries,
		},
	)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, iamsdk.TenantResponse{
		ID:     tenant.ID,
		Name:   tenant.Name,
		Domain: tenant.Domain,
	})
}

// HandleCreateUser handles POST /v1/admin/users.
func (h *AdminHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		iamsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req iamsdk.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TenantID == "" || req.Email == "" || req.Password == "" {
		iamsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.AdminService.CreateUser(r.Context(), p, domain.User{
		TenantID: req.TenantID,
		Email:    req.Email,
		Name:     req.Name,
		Enabled:  true,
		Scopes:   req.Scopes,
	}, req.Password)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, iamsdk.UserResponse{
		ID:       user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		Name:     user.Name,
		Enabled:  user.Enabled,
	})
}

// HandleListEvents handles GET /v1/admin/events.
func (h *AdminHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		iamsdk.ErrInvalidToken.WriteError(w)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.AdminService.ListAuthEvents(r.Context(), p, r.URL.Query().Get("tenant_id"), limit)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	out := iamsdk.ListAuthEventsResponse{Events: make([]iamsdk.AuthEventResponse, 0, len(events))}
	for _, ev := range events {
		out.Events = append(out.Events, iamsdk.AuthEventResponse{
			ID:        ev.ID,
			TenantID:  ev.TenantID,
			UserID:    ev.UserID,
			Kind:      string(ev.Kind),
			CreatedAt: ev.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
