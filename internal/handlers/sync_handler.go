package handlers

import (
	"net/http"

	"guardianlink/internal/authstate"
	"guardianlink/internal/service"
)

// SyncHandler triggers replay of locally queued registrations
type SyncHandler struct {
	reconciler *service.ReconcileService
	cache      *authstate.Cache
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(reconciler *service.ReconcileService, cache *authstate.Cache) *SyncHandler {
	return &SyncHandler{reconciler: reconciler, cache: cache}
}

// Sync handles POST /api/sync. The client calls this when it regains
// connectivity; the cache is flipped online and the pending queue replayed.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	h.cache.SetOnline(r.Context())

	result, err := h.reconciler.Run(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to replay pending registrations", "Reconcile failed", err)
		return
	}

	if h.cache.Offline() {
		respondJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Message: "Still offline, queued registrations were kept",
			Data:    result,
			Offline: true,
		})
		return
	}

	respondWithData(w, http.StatusOK, result)
}
