package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"guardianlink/internal/models"
	"guardianlink/internal/service"
	"guardianlink/internal/validation"
)

// ConsentReceiptSender confirms recorded consent choices by email
type ConsentReceiptSender interface {
	SendConsentReceipt(ctx context.Context, toEmail string, marketing bool) error
}

// ConsentHandler handles the consent gate endpoints
type ConsentHandler struct {
	consents *service.ConsentService
	sessions *service.SessionService
	receipts ConsentReceiptSender
}

// NewConsentHandler creates a new consent handler. receipts may be nil
// when outbound email is disabled.
func NewConsentHandler(consents *service.ConsentService, sessions *service.SessionService,
	receipts ConsentReceiptSender) *ConsentHandler {
	return &ConsentHandler{consents: consents, sessions: sessions, receipts: receipts}
}

// GetConsent handles GET /api/consent
func (h *ConsentHandler) GetConsent(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	required, err := h.consents.RequiresConsent(session.AccountID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load consent state", "Consent lookup failed", err)
		return
	}

	respondWithData(w, http.StatusOK, map[string]interface{}{
		"required": required,
	})
}

// RecordConsent handles POST /api/consent
func (h *ConsentHandler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var flags models.ConsentFlags
	if err := decodeJSON(r, &flags); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	role := models.RoleParent
	if profile := GetProfileFromContext(r.Context()); profile != nil {
		role = profile.Role
	}

	route, err := h.consents.RecordConsent(session.AccountID, role, flags)
	if err != nil {
		var vErr validation.ValidationError
		if errors.As(err, &vErr) {
			respondWithError(w, http.StatusBadRequest, vErr.Message, "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to record consent", "Consent write failed", err)
		return
	}

	if h.receipts != nil {
		if email, err := h.sessions.AccountEmail(r.Context(), session); err == nil && email != "" {
			if err := h.receipts.SendConsentReceipt(r.Context(), email, flags.MarketingCommunication); err != nil {
				log.Printf("Failed to send consent receipt: %v", err)
			}
		}
	}

	respondWithData(w, http.StatusOK, map[string]interface{}{
		"route": route,
	})
}
