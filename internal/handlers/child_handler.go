package handlers

import (
	"errors"
	"net/http"

	"guardianlink/internal/service"
)

// ChildHandler handles the child kiosk sign-in on a guardian's device
type ChildHandler struct {
	sessions *service.SessionService
	planning *service.PlanningService
}

// NewChildHandler creates a new child handler
func NewChildHandler(sessions *service.SessionService, planning *service.PlanningService) *ChildHandler {
	return &ChildHandler{sessions: sessions, planning: planning}
}

type childLoginRequest struct {
	Nickname string `json:"nickname"`
	Passcode string `json:"passcode"`
}

// Login handles POST /api/child/login. The guardian's session scopes
// which children can sign in; no provider call is involved.
func (h *ChildHandler) Login(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req childLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	child, err := h.sessions.ChildLogin(session.AccountID, req.Nickname, req.Passcode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Wrong nickname or passcode", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Sign-in failed", "Child login failed", err)
		return
	}

	respondWithData(w, http.StatusOK, map[string]interface{}{
		"child_uid":            child.AccountID,
		"nickname":             child.FullName,
		"grade":                child.Grade,
		"diagnostic_completed": child.DiagnosticCompleted,
	})
}

// Topics handles GET /api/child/{uid}/topics
func (h *ChildHandler) Topics(w http.ResponseWriter, r *http.Request) {
	childUID := r.PathValue("uid")

	topics, err := h.planning.ListTopics(childUID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load topics", "Topic lookup failed", err)
		return
	}

	respondWithData(w, http.StatusOK, topics)
}
