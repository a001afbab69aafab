package http

import (
	"net/http"
	"time"

	"github.com/veridianhq/veridian/internal/iam/store"
	"github.com/veridianhq/veridian/pkg/httpx"
	"github.com/veridianhq/veridian/pkg/iamsdk"
	"github.com/veridianhq/veridian/pkg/jwtx"
)

// LivezHandler is the liveness probe. It answers 200 whenever the process is
// up, with uptime and build version for operators.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, iamsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler is the readiness probe. It checks the database and the token
// signer and degrades to 503 when either is unavailable.
func ReadyzHandler(startTime time.Time, version string, st store.Store, signer jwtx.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &iamsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if signer == nil || signer.KID() == "" {
			checks.Signer = "error: no signing key loaded"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, iamsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
