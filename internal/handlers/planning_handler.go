package handlers

import (
	"encoding/json"
	"net/http"

	"guardianlink/internal/service"
)

// PlanningHandler handles term plans, topics and searches
type PlanningHandler struct {
	planning *service.PlanningService
}

// NewPlanningHandler creates a new planning handler
func NewPlanningHandler(planning *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{planning: planning}
}

// GetTermPlan handles GET /api/term-plan?term=...
func (h *PlanningHandler) GetTermPlan(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	term := r.URL.Query().Get("term")
	if term == "" {
		respondWithError(w, http.StatusBadRequest, "term is required", "", nil)
		return
	}

	plan, err := h.planning.GetTermPlan(session.AccountID, term)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load term plan", "Plan lookup failed", err)
		return
	}
	if plan == nil {
		respondWithError(w, http.StatusNotFound, "No plan for this term yet", "", nil)
		return
	}

	var subjects []string
	if err := json.Unmarshal([]byte(plan.Subjects), &subjects); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to decode term plan", "Stored subjects are corrupt", err)
		return
	}

	respondWithData(w, http.StatusOK, map[string]interface{}{
		"term":     plan.Term,
		"subjects": subjects,
	})
}

type saveTermPlanRequest struct {
	Term     string   `json:"term"`
	Subjects []string `json:"subjects"`
}

// SaveTermPlan handles POST /api/term-plan
func (h *PlanningHandler) SaveTermPlan(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req saveTermPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	plan, err := h.planning.SaveTermPlan(session.AccountID, req.Term, req.Subjects)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	respondWithData(w, http.StatusOK, map[string]interface{}{
		"term":     plan.Term,
		"subjects": req.Subjects,
	})
}

type addTopicRequest struct {
	ChildUID string `json:"child_uid"`
	Name     string `json:"name"`
}

// AddTopic handles POST /api/topics
func (h *PlanningHandler) AddTopic(w http.ResponseWriter, r *http.Request) {
	var req addTopicRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if req.ChildUID == "" {
		respondWithError(w, http.StatusBadRequest, "child_uid is required", "", nil)
		return
	}

	topic, err := h.planning.AddTopic(req.ChildUID, req.Name)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	respondWithData(w, http.StatusOK, topic)
}

type searchRequest struct {
	Query string `json:"query"`
}

// RecordSearch handles POST /api/searches
func (h *PlanningHandler) RecordSearch(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	if err := h.planning.RecordSearch(session.AccountID, req.Query); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record search", "Search write failed", err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Success: true})
}

// RecentSearches handles GET /api/searches
func (h *PlanningHandler) RecentSearches(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	searches, err := h.planning.RecentSearches(session.AccountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load searches", "Search lookup failed", err)
		return
	}

	respondWithData(w, http.StatusOK, searches)
}
