package iamsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a transport-level error response. It implements the error
// interface so both handlers (writing it) and clients (receiving it) can use
// the same value.
type APIError struct {
	// StatusCode is the HTTP status for this error.
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

var (
	// ErrInvalidRequest covers malformed bodies and missing parameters.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "the request is malformed or missing required parameters",
	}

	// ErrUnauthorized is the deliberately opaque authentication failure.
	// Account existence and account condition are never distinguished here.
	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "unauthorized",
		Description: "authentication failed",
	}

	// ErrInvalidToken is returned on a missing or unverifiable bearer token.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: "the access token is missing, expired, or invalid",
	}

	// ErrForbidden is returned when an authorization decision denies the call.
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        "access_denied",
		Description: "the caller is not authorized for this operation",
	}

	// ErrNotFound is the generic missing-resource response.
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        "not_found",
		Description: "the requested resource does not exist",
	}

	// ErrServerError is the opaque internal failure response.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        "server_error",
		Description: "an internal error occurred",
	}
)
