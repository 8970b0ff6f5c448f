package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"guardianlink/internal/audit"
	"guardianlink/internal/models"
)

var errTest = errors.New("write failed")

func queueEntry(t *testing.T, svc *ReconcileService, key string) {
	t.Helper()
	entry := PendingChild{
		Descriptor:  models.ChildDescriptor{Nickname: "alice", Age: 10, Grade: "7", Key: key},
		ParentID:    "parent1",
		ParentEmail: "parent@example.com",
		QueuedAt:    time.Now(),
	}
	if err := svc.pending.Put(PendingNamespace, key, entry); err != nil {
		t.Fatalf("failed to queue entry: %v", err)
	}
}

func TestReconcileEmptyQueueMakesNoCalls(t *testing.T) {
	admin := &fakeAdmin{}
	register, _, pending := newTestService(t, admin, newFakeProfiles(), &fakeGuardians{}, &fakeOrphans{})
	svc := NewReconcileService(pending, register, audit.Nop{})

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Replayed != 0 || result.Failed != 0 {
		t.Errorf("expected a zero result, got %+v", result)
	}
	if len(admin.created) != 0 {
		t.Errorf("an empty queue must not touch the provider, got %d calls", len(admin.created))
	}
}

func TestReconcileReplaysAndRemoves(t *testing.T) {
	admin := &fakeAdmin{}
	profiles := newFakeProfiles()
	register, _, pending := newTestService(t, admin, profiles, &fakeGuardians{}, &fakeOrphans{})
	svc := NewReconcileService(pending, register, audit.Nop{})

	queueEntry(t, svc, "key-1")

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Replayed != 1 {
		t.Fatalf("expected 1 replay, got %d", result.Replayed)
	}
	if len(profiles.profiles) != 1 {
		t.Errorf("expected the child to be registered, got %d profiles", len(profiles.profiles))
	}

	entries, err := pending.List(PendingNamespace)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("replayed entries must be removed, %d remain", len(entries))
	}
}

func TestReconcileKeepsFailedEntries(t *testing.T) {
	admin := &fakeAdmin{}
	profiles := newFakeProfiles()
	profiles.createErr = errTest
	register, _, pending := newTestService(t, admin, profiles, &fakeGuardians{}, &fakeOrphans{})
	svc := NewReconcileService(pending, register, audit.Nop{})

	queueEntry(t, svc, "key-1")

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", result.Failed)
	}

	entries, _ := pending.List(PendingNamespace)
	if len(entries) != 1 {
		t.Errorf("failed entries must stay queued, got %d", len(entries))
	}
}

func TestReconcileReplayIsIdempotent(t *testing.T) {
	admin := &fakeAdmin{}
	profiles := newFakeProfiles()
	register, _, pending := newTestService(t, admin, profiles, &fakeGuardians{}, &fakeOrphans{})
	svc := NewReconcileService(pending, register, audit.Nop{})

	// Simulate a crash between registration and queue removal: the
	// profile exists but the entry is still queued.
	queueEntry(t, svc, "key-1")
	profiles.byKey["key-1"] = &models.Profile{AccountID: "acct-existing", FullName: "alice"}

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Replayed != 1 {
		t.Fatalf("expected the entry to be resolved, got %+v", result)
	}
	if len(admin.created) != 0 {
		t.Errorf("a replay with a used key must not create a second account, got %d", len(admin.created))
	}
}

func TestReconcileSerializesRuns(t *testing.T) {
	admin := &fakeAdmin{}
	register, _, pending := newTestService(t, admin, newFakeProfiles(), &fakeGuardians{}, &fakeOrphans{})
	svc := NewReconcileService(pending, register, audit.Nop{})

	for i := 0; i < 4; i++ {
		queueEntry(t, svc, "key-"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Run(context.Background()); err != nil {
				t.Errorf("run failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(admin.created) != 4 {
		t.Errorf("each queued entry must be replayed exactly once, got %d creates", len(admin.created))
	}
}
