package handlers

import (
	"net/http"
	"strings"

	"guardianlink/internal/models"
	"guardianlink/internal/service"
	"guardianlink/internal/validation"
)

// maxBatchSize caps how many children one request may register
const maxBatchSize = 10

// RegisterHandler handles child account registration
type RegisterHandler struct {
	registration *service.RegistrationService
	sessions     *service.SessionService
}

// NewRegisterHandler creates a new register handler
func NewRegisterHandler(registration *service.RegistrationService, sessions *service.SessionService) *RegisterHandler {
	return &RegisterHandler{registration: registration, sessions: sessions}
}

type registerChildrenRequest struct {
	models.ChildDescriptor
	Children []models.ChildDescriptor `json:"children,omitempty"`
}

// RegisterChildren handles POST /api/auth/register-child. A single
// descriptor or a children array is accepted; the whole batch is
// validated up front and rejected as one unit if any item is invalid.
func (h *RegisterHandler) RegisterChildren(w http.ResponseWriter, r *http.Request) {
	profile := GetProfileFromContext(r.Context())
	if profile != nil && profile.IsChild() {
		respondWithError(w, http.StatusForbidden, "Child accounts cannot register children", "", nil)
		return
	}

	var req registerChildrenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	batch := req.Children
	if len(batch) == 0 {
		batch = []models.ChildDescriptor{req.ChildDescriptor}
	}
	if len(batch) > maxBatchSize {
		respondWithError(w, http.StatusBadRequest, "Too many children in one request", "", nil)
		return
	}

	var validationErrors []models.ChildError
	for i, d := range batch {
		if err := validation.ValidateChildDescriptor(d); err != nil {
			validationErrors = append(validationErrors, models.ChildError{Index: i, Message: err.Error()})
		}
	}
	if len(validationErrors) > 0 {
		respondJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "Validation failed",
			Errors:  validationErrors,
		})
		return
	}

	session := GetSessionFromContext(r.Context())
	parentEmail, err := h.sessions.AccountEmail(r.Context(), session)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve guardian email", "Email lookup failed", err)
		return
	}

	result := h.registration.RegisterChildren(r.Context(), session.AccountID, parentEmail, batch)

	switch {
	case result.Offline:
		respondJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Message: "You appear to be offline. The registrations were saved and will be sent once connected.",
			Data:    result,
			Errors:  result.Errors,
			Offline: true,
		})
	case result.AllFailed():
		respondJSON(w, statusForFailures(result.Errors), envelope{
			Success: false,
			Message: "Registration failed",
			Data:    result,
			Errors:  result.Errors,
		})
	default:
		respondJSON(w, http.StatusOK, envelope{
			Success: true,
			Data:    result,
			Errors:  result.Errors,
		})
	}
}

// ListChildren handles GET /api/children for the signed-in parent
func (h *RegisterHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	children, err := h.registration.ListChildren(session.AccountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load children", "Children lookup failed", err)
		return
	}

	type childView struct {
		ChildUID            string `json:"child_uid"`
		Nickname            string `json:"nickname"`
		Age                 int    `json:"age"`
		Grade               string `json:"grade"`
		DiagnosticCompleted bool   `json:"diagnostic_completed"`
	}
	views := make([]childView, 0, len(children))
	for _, c := range children {
		views = append(views, childView{
			ChildUID:            c.AccountID,
			Nickname:            c.FullName,
			Age:                 c.Age,
			Grade:               c.Grade,
			DiagnosticCompleted: c.DiagnosticCompleted,
		})
	}

	respondWithData(w, http.StatusOK, views)
}

// statusForFailures picks the HTTP status for a fully failed batch.
// A rate-limited batch surfaces as 429 so clients back off.
func statusForFailures(errs []models.ChildError) int {
	for _, e := range errs {
		if !strings.Contains(e.Message, "Too many registration attempts") {
			return http.StatusInternalServerError
		}
	}
	if len(errs) > 0 {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
