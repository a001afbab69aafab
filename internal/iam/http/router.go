package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/veridianhq/veridian/internal/iam/service"
	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/httpx"
	"github.com/veridianhq/veridian/pkg/jwtx"
	"github.com/veridianhq/veridian/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	AuthService  *service.AuthenticateService
	AdminService *service.AdminService
}

func NewRouter(
	signer jwtx.Signer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuthn()
	r.registerDevice()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuthn() {
	start := &StartHandler{AuthService: r.AuthService}
	steps := &StepsHandler{AuthService: r.AuthService}

	// Flow bootstrap - moderate rate limit (no credentials involved yet)
	r.Mux.Handle("POST /v1/authn/start",
		httpx.Chain(http.HandlerFunc(start.HandleStart),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/recovery",
		httpx.Chain(http.HandlerFunc(start.HandleStartRecovery),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Credential submission - strict rate limit (brute-force surface)
	password := &PasswordHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/authn/password",
		httpx.Chain(http.HandlerFunc(password.HandlePost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/totp",
		httpx.Chain(http.HandlerFunc(steps.HandleTOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/forgot-password",
		httpx.Chain(http.HandlerFunc(steps.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/reset-token",
		httpx.Chain(http.HandlerFunc(steps.HandleResetToken),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/rotate-password",
		httpx.Chain(http.HandlerFunc(steps.HandleRotatePassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/terms",
		httpx.Chain(http.HandlerFunc(steps.HandleTerms),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/validate-email",
		httpx.Chain(http.HandlerFunc(steps.HandleValidateEmail),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/authn/email",
		httpx.Chain(http.HandlerFunc(steps.HandleEnterEmail),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerDevice() {
	device := &DeviceHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /v1/device/start",
		httpx.Chain(http.HandlerFunc(device.HandleStart),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// User-code entry - strict rate limit (short codes are guessable)
	r.Mux.Handle("POST /v1/device/code",
		httpx.Chain(http.HandlerFunc(device.HandleUserCode),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	admin := &AdminHandler{AdminService: r.AdminService}
	authn := AuthnMiddleware(r.signer)

	r.Mux.Handle("GET /v1/admin/tenants/{id}",
		httpx.Chain(http.HandlerFunc(admin.HandleGetTenant),
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/admin/tenants",
		httpx.Chain(http.HandlerFunc(admin.HandleCreateTenant),
			authn,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/admin/users",
		httpx.Chain(http.HandlerFunc(admin.HandleCreateUser),
			authn,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/admin/events",
		httpx.Chain(http.HandlerFunc(admin.HandleListEvents),
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer))
}
