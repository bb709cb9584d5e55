package server

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the JSON body of every non-2xx response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func errNotFound(message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, ErrorCode: "NOT_FOUND", Message: message}
}

func errInvalidParameter(message string, details any) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, ErrorCode: "INVALID_PARAMETER", Message: message, Details: details}
}
