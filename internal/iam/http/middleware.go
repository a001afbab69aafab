package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/veridianhq/veridian/internal/iam/domain"
	"github.com/veridianhq/veridian/pkg/httpx"
	"github.com/veridianhq/veridian/pkg/iamsdk"
	"github.com/veridianhq/veridian/pkg/jwtx"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// AuthnMiddleware verifies the bearer token and injects the caller's
// principal into the request context. Only portal-use tokens pass; pre-authn
// tokens never grant management-plane access.
func AuthnMiddleware(verifier jwtx.Signer) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				iamsdk.ErrInvalidToken.WriteError(w)
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil || claims.TokenUse != jwtx.UsePortal {
				iamsdk.ErrInvalidToken.WriteError(w)
				return
			}

			p := &domain.Principal{
				UserID:                   claims.Subject,
				TenantID:                 claims.TenantID,
				ManagementAccessTenantID: claims.ManagementTenantID,
				Scopes:                   claims.Scopes,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyPrincipal, p)))
		})
	}
}

// PrincipalFromContext returns the principal injected by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(*domain.Principal)
	return p, ok
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
