package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"guardianlink/internal/audit"
	"guardianlink/internal/localstore"
	"guardianlink/internal/models"
)

// ReconcileService replays child registrations that were queued while
// the network was down. Runs are serialized so a reconnect storm cannot
// replay the same entry twice.
type ReconcileService struct {
	mu       sync.Mutex
	pending  *localstore.Store
	register *RegistrationService
	audit    audit.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(pending *localstore.Store, register *RegistrationService, auditLog audit.Logger) *ReconcileService {
	return &ReconcileService{pending: pending, register: register, audit: auditLog}
}

// ReconcileResult summarizes one replay pass
type ReconcileResult struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
}

// Run replays every queued registration. Successful entries are removed
// from the store; failed ones stay for the next pass. An empty queue
// makes no network calls at all.
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.pending.List(PendingNamespace)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	if len(entries) == 0 {
		return result, nil
	}

	for key, raw := range entries {
		var entry PendingChild
		if err := json.Unmarshal(raw, &entry); err != nil {
			log.Printf("Dropping undecodable pending entry %s: %v", key, err)
			if derr := s.pending.Delete(PendingNamespace, key); derr != nil {
				log.Printf("Failed to drop pending entry %s: %v", key, derr)
			}
			continue
		}

		batch := s.register.RegisterChildren(ctx, entry.ParentID, entry.ParentEmail,
			[]models.ChildDescriptor{entry.Descriptor})
		if batch.Offline {
			// Still down, stop burning the queue.
			result.Failed += len(entries) - result.Replayed
			return result, nil
		}
		if len(batch.Results) == 0 {
			result.Failed++
			s.audit.Record("pending_child_replay_failed", map[string]interface{}{
				"key":      key,
				"nickname": entry.Descriptor.Nickname,
			})
			continue
		}

		if err := s.pending.Delete(PendingNamespace, key); err != nil {
			log.Printf("Failed to remove replayed entry %s: %v", key, err)
		}
		result.Replayed++
		s.audit.Record("pending_child_replayed", map[string]interface{}{
			"key":       key,
			"child_uid": batch.Results[0].ChildUID,
		})
	}

	return result, nil
}
