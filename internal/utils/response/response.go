// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
//
// Consistent response shapes also make life easier for API consumers:
// errors always look like {"error": "..."}.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/class-registration/internal/types"
)

// Client-facing messages. Validation messages live with the validator.
const (
	MsgRegistered     = "Registration successful!"
	MsgDuplicate      = "Admission number already registered."
	MsgInternal       = "Internal server error."
	MsgInvalidRequest = "Invalid request body."
)

// ErrorResponse is the envelope returned for every error.
//
//	{ "error": "Admission number already registered." }
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisteredResponse is returned for an accepted registration.
//
//	{ "success": true, "message": "Registration successful!", "id": 1 }
type RegisteredResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	ID      types.ID `json:"id"`
}

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Error wraps a client-facing message into the error envelope.
// Never pass internal error text here.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// Registered builds the success body for an accepted registration.
func Registered(id types.ID) RegisteredResponse {
	return RegisteredResponse{Success: true, Message: MsgRegistered, ID: id}
}
