// Package httpx holds small HTTP helpers shared by the transport layer:
// JSON responses, a middleware chain and per-client rate limiting.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Middleware wraps an http.Handler with extra behaviour.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares right-to-left so the first listed runs outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// WriteJSON writes a JSON response with the given status code. Responses are
// never cacheable; everything this service returns is security sensitive.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ErrorBody is the generic JSON error envelope.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError writes a generic JSON error.
func WriteError(w http.ResponseWriter, code int, name, description string) {
	WriteJSON(w, code, ErrorBody{Error: name, Description: description})
}
