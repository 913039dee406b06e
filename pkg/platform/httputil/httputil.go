package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "consents/pkg/domain-errors"
)

// Fixed client-facing messages.
const (
	MessageInvalidInput     = "Invalid input"
	MessageInternalError    = "Internal server error"
	MessageTooManyRequests  = "Too many requests"
	MessageMethodNotAllowed = "Request method not supported"
	MessageNoResource       = "No resource found"
	MessageUnsupportedMedia = "Content type not supported"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError maps a coded error to its status and body. Validation failures
// are reported as "Invalid input" with their details; internal failures never
// leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := DomainCodeToHTTPStatus(code)
	switch status {
	case http.StatusBadRequest:
		WriteJSON(w, status, ErrorResponse{Message: MessageInvalidInput, Errors: dErrors.DetailsOf(err)})
	case http.StatusNotFound:
		WriteJSON(w, status, ErrorResponse{Message: err.Error()})
	default:
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Message: MessageInternalError})
	}
}

func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteTooManyRequests writes the fixed rate limit rejection body.
func WriteTooManyRequests(w http.ResponseWriter) {
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{Message: MessageTooManyRequests})
}
