// Package student contains the HTTP handlers for student registrations.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// The router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a service. A
// factory function accepts the dependencies once at startup and returns a
// function with the exact signature the router needs:
//
//	r.Post("/api/register", student.Register(svc, logger))
//	//                                  ^^^^^^^^^^^^^^^^^
//	//                  Register(svc, logger) is called ONCE at startup.
//	//                  The returned func runs on EVERY incoming request.
package student

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/class-registration/internal/registration"
	"github.com/aanand-mishra/class-registration/internal/types"
	"github.com/aanand-mishra/class-registration/internal/utils/response"
)

// maxBodyBytes caps the registration payload.
const maxBodyBytes = 1 << 20

// Service is what the handlers need from the registration service.
type Service interface {
	Register(ctx context.Context, sub registration.Submission) (types.Student, error)
	List(ctx context.Context) ([]types.Student, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Register handles POST /api/register
//
// Request body (JSON):
//
//	{ "name": "Asha", "phone": "555-0100", "admission_number": "ct100" }
//
// Responses:
//
//	200 { "success": true, "message": "Registration successful!", "id": 1 }
//	400 { "error": "All fields are required." }
//	400 { "error": "Admission number must be in the format AA123." }
//	400 { "error": "Invalid request body." }
//	409 { "error": "Admission number already registered." }
//	500 { "error": "Internal server error." }
//
// ─────────────────────────────────────────────────────────────────────────────
func Register(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub registration.Submission

		// An empty body decodes to io.EOF; treat it as a submission with
		// every field missing so the client gets the usual message.
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&sub)
		if err != nil && !errors.Is(err, io.EOF) {
			logger.DebugContext(r.Context(), "malformed registration body", slog.String("error", err.Error()))
			_ = response.WriteJSON(w, http.StatusBadRequest, response.Error(response.MsgInvalidRequest))
			return
		}

		student, err := svc.Register(r.Context(), sub)

		switch registration.OutcomeOf(err) {
		case registration.OutcomeAccepted:
			_ = response.WriteJSON(w, http.StatusOK, response.Registered(student.ID))
		case registration.OutcomeRejectedInvalid:
			var invalid *registration.InvalidInputError
			reason := registration.MsgFieldsRequired
			if errors.As(err, &invalid) {
				reason = invalid.Reason
			}
			_ = response.WriteJSON(w, http.StatusBadRequest, response.Error(reason))
		case registration.OutcomeRejectedDuplicate:
			_ = response.WriteJSON(w, http.StatusConflict, response.Error(response.MsgDuplicate))
		default:
			// Already logged with detail by the service.
			_ = response.WriteJSON(w, http.StatusInternalServerError, response.Error(response.MsgInternal))
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
// Returns a JSON array of every registration, newest first.
//
// Must be mounted behind admin.RequireAdminKey.
//
//	[
//	  { "id": 2, "name": "Ravi", "phone": "...", "admission_number": "CT101", "timestamp": "..." },
//	  { "id": 1, "name": "Asha", "phone": "...", "admission_number": "CT100", "timestamp": "..." }
//	]
//
// Returns an empty array [] (not null) when there are no students.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.DebugContext(r.Context(), "listing students")

		students, err := svc.List(r.Context())
		if err != nil {
			_ = response.WriteJSON(w, http.StatusInternalServerError, response.Error(response.MsgInternal))
			return
		}
		if students == nil {
			students = []types.Student{}
		}

		_ = response.WriteJSON(w, http.StatusOK, students)
	}
}
