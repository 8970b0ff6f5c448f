package handlers

import (
	"net/http"

	"guardianlink/internal/models"
	"guardianlink/internal/service"
)

// GuardianHandler handles guardian report preferences
type GuardianHandler struct {
	guardians *service.GuardianService
	profiles  service.ProfileReader
}

// NewGuardianHandler creates a new guardian handler
func NewGuardianHandler(guardians *service.GuardianService, profiles service.ProfileReader) *GuardianHandler {
	return &GuardianHandler{guardians: guardians, profiles: profiles}
}

// GetReportSettings handles GET /api/guardian/reports?child_uid=...
func (h *GuardianHandler) GetReportSettings(w http.ResponseWriter, r *http.Request) {
	childUID := r.URL.Query().Get("child_uid")
	if !h.ownsChild(w, r, childUID) {
		return
	}

	settings, err := h.guardians.GetSettings(childUID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load report settings", "Settings lookup failed", err)
		return
	}

	respondWithData(w, http.StatusOK, settings)
}

type updateReportsRequest struct {
	ChildUID      string `json:"child_uid"`
	WeeklyReport  bool   `json:"weekly_report"`
	MonthlyReport bool   `json:"monthly_report"`
}

// UpdateReportSettings handles POST /api/guardian/reports
func (h *GuardianHandler) UpdateReportSettings(w http.ResponseWriter, r *http.Request) {
	var req updateReportsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if !h.ownsChild(w, r, req.ChildUID) {
		return
	}

	settings := models.ReportSettings{
		WeeklyReport:  req.WeeklyReport,
		MonthlyReport: req.MonthlyReport,
	}
	if err := h.guardians.UpdateSettings(req.ChildUID, settings); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update report settings", "Settings write failed", err)
		return
	}

	respondWithData(w, http.StatusOK, settings)
}

// ownsChild verifies the child belongs to the signed-in guardian. It
// writes the error response itself and reports whether to continue.
func (h *GuardianHandler) ownsChild(w http.ResponseWriter, r *http.Request, childUID string) bool {
	if childUID == "" {
		respondWithError(w, http.StatusBadRequest, "child_uid is required", "", nil)
		return false
	}

	session := GetSessionFromContext(r.Context())
	child, err := h.profiles.GetProfile(childUID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load child", "Child lookup failed", err)
		return false
	}
	if child == nil || !child.IsChild() || child.ParentID != session.AccountID {
		respondWithError(w, http.StatusForbidden, "Not your child account", "", nil)
		return false
	}
	return true
}
