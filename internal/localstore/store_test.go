package localstore

import (
	"testing"
)

type draft struct {
	Nickname string `json:"nickname"`
	Age      int    `json:"age"`
}

func TestPutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	in := draft{Nickname: "alice", Age: 10}
	if err := store.Put("pending", "key-1", in); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var out draft
	found, err := store.Get("pending", "key-1", &out)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected the key to exist")
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestGetMissingKey(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	var out draft
	found, err := store.Get("pending", "nope", &out)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("expected a missing key to report not found")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Put("pending", "key-1", draft{Nickname: "alice"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Delete("pending", "key-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete("pending", "key-1"); err != nil {
		t.Errorf("deleting a missing key must not error, got %v", err)
	}
}

func TestListNamespace(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	entries, err := store.List("empty")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected an absent namespace to list empty, got %d entries", len(entries))
	}

	store.Put("pending", "a", draft{Nickname: "alice"})
	store.Put("pending", "b", draft{Nickname: "bob"})
	store.Put("other", "c", draft{Nickname: "carol"})

	entries, err = store.List("pending")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
	if _, ok := entries["a"]; !ok {
		t.Error("expected key a in listing")
	}
}

func TestClearNamespace(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	store.Put("drafts_acct1", "a", draft{Nickname: "alice"})
	store.Put("drafts_acct2", "b", draft{Nickname: "bob"})

	if err := store.Clear("drafts_acct1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	entries, _ := store.List("drafts_acct1")
	if len(entries) != 0 {
		t.Errorf("expected the namespace to be empty after clear, got %d", len(entries))
	}
	entries, _ = store.List("drafts_acct2")
	if len(entries) != 1 {
		t.Errorf("clear must not touch other namespaces, got %d entries", len(entries))
	}
}

func TestSanitizeKeepsKeysInsideRoot(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Put("ns", "../escape", draft{Nickname: "alice"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var out draft
	found, err := store.Get("ns", "../escape", &out)
	if err != nil || !found {
		t.Fatalf("expected the sanitized key to round-trip, found=%v err=%v", found, err)
	}
}
