package authstate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"guardianlink/internal/identity"
)

func accountFetcher(account *identity.Account, calls *int32) Fetcher {
	return func(ctx context.Context) (*identity.Account, error) {
		atomic.AddInt32(calls, 1)
		return account, nil
	}
}

func TestCheckServesCachedSnapshotWithinTTL(t *testing.T) {
	var calls int32
	account := &identity.Account{ID: "acct-1", Email: "parent@example.com"}
	cache := New(accountFetcher(account, &calls), time.Minute)

	for i := 0; i < 5; i++ {
		snap := cache.Check(context.Background(), false)
		if !snap.Authenticated {
			t.Fatal("expected an authenticated snapshot")
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 provider call within the TTL window, got %d", got)
	}
}

func TestCheckForceBypassesTTL(t *testing.T) {
	var calls int32
	cache := New(accountFetcher(&identity.Account{ID: "acct-1"}, &calls), time.Minute)

	cache.Check(context.Background(), false)
	cache.Check(context.Background(), true)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 provider calls with force, got %d", got)
	}
}

func TestCheckUnauthorizedClearsAccount(t *testing.T) {
	cache := New(func(ctx context.Context) (*identity.Account, error) {
		return nil, identity.ErrUnauthorized
	}, time.Minute)
	cache.SetAccount(&identity.Account{ID: "acct-1"})

	snap := cache.Check(context.Background(), true)

	if snap.Authenticated {
		t.Error("expected an unauthorized check to sign the snapshot out")
	}
	if snap.Err != "" {
		t.Errorf("an expired session is not an error state, got %q", snap.Err)
	}
}

func TestOfflineSnapshotKeepsIdentity(t *testing.T) {
	var calls int32
	cache := New(accountFetcher(&identity.Account{ID: "acct-1"}, &calls), time.Minute)
	cache.Check(context.Background(), false)

	cache.SetOffline()
	snap := cache.Check(context.Background(), true)

	if !snap.Authenticated {
		t.Error("losing connectivity must not flip the snapshot to signed-out")
	}
	if snap.Err != ErrConnectionLost {
		t.Errorf("expected the staleness marker, got %q", snap.Err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("offline checks must not hit the provider, got %d calls", got)
	}
}

func TestSubscribeImmediateAndUnsubscribe(t *testing.T) {
	cache := New(accountFetcher(nil, new(int32)), time.Minute)

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := cache.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	mu.Lock()
	if len(seen) != 1 {
		t.Fatalf("expected an immediate call on subscribe, got %d", len(seen))
	}
	if !seen[0].Loading {
		t.Error("expected the initial snapshot to be loading")
	}
	mu.Unlock()

	cache.SetAccount(&identity.Account{ID: "acct-1"})

	mu.Lock()
	if len(seen) != 2 {
		t.Fatalf("expected a change notification, got %d calls", len(seen))
	}
	mu.Unlock()

	unsubscribe()
	cache.ClearAccount()

	mu.Lock()
	if len(seen) != 2 {
		t.Errorf("unsubscribed listeners must not be called, got %d calls", len(seen))
	}
	mu.Unlock()
}

func TestNoBroadcastWithoutChange(t *testing.T) {
	account := &identity.Account{ID: "acct-1", Email: "parent@example.com"}
	var calls int32
	cache := New(accountFetcher(account, &calls), time.Minute)
	cache.Check(context.Background(), false)

	var notifications int32
	cache.Subscribe(func(Snapshot) {
		atomic.AddInt32(&notifications, 1)
	})

	// Refreshes that observe the same account must stay silent even
	// though LastChecked moves.
	cache.Check(context.Background(), true)
	cache.Check(context.Background(), true)

	if got := atomic.LoadInt32(&notifications); got != 1 {
		t.Errorf("expected only the immediate subscribe call, got %d", got)
	}
}

func TestSetOnlineReplaysQueuedWrites(t *testing.T) {
	cache := New(accountFetcher(nil, new(int32)), time.Minute)
	cache.SetOffline()

	var replayed int32
	cache.QueueWrite(func(ctx context.Context) error {
		atomic.AddInt32(&replayed, 1)
		return nil
	})

	cache.SetOnline(context.Background())

	if got := atomic.LoadInt32(&replayed); got != 1 {
		t.Errorf("expected the queued write to replay once, got %d", got)
	}
	if cache.Offline() {
		t.Error("expected the cache to be online")
	}
}

func TestSetOnlineRequeuesFailedWrites(t *testing.T) {
	cache := New(accountFetcher(nil, new(int32)), time.Minute)
	cache.SetOffline()

	var attempts int32
	cache.QueueWrite(func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("still failing")
	})

	cache.SetOnline(context.Background())

	cache.SetOffline()
	cache.SetOnline(context.Background())

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("failed writes must stay queued for the next reconnect, got %d attempts", got)
	}
}

func TestJitterStaysWithinBounds(t *testing.T) {
	base := 5 * time.Minute
	for i := 0; i < 100; i++ {
		d := jitter(base)
		if d < base-30*time.Second || d > base+30*time.Second {
			t.Fatalf("jitter(%v) = %v, want within ±30s", base, d)
		}
	}

	// A tiny base must never produce a non-positive interval.
	for i := 0; i < 100; i++ {
		if d := jitter(time.Second); d < time.Second {
			t.Fatalf("jitter floor violated: %v", d)
		}
	}
}

func TestListenerSoftCapDoesNotReject(t *testing.T) {
	cache := New(accountFetcher(nil, new(int32)), time.Minute)

	var calls int32
	for i := 0; i < listenerSoftCap+5; i++ {
		cache.Subscribe(func(Snapshot) {
			atomic.AddInt32(&calls, 1)
		})
	}

	// Every listener got its immediate call, including those past the cap.
	if got := atomic.LoadInt32(&calls); got != listenerSoftCap+5 {
		t.Fatalf("expected %d immediate calls, got %d", listenerSoftCap+5, got)
	}

	atomic.StoreInt32(&calls, 0)
	cache.SetAccount(&identity.Account{ID: "acct-1"})

	if got := atomic.LoadInt32(&calls); got != listenerSoftCap+5 {
		t.Errorf("listeners past the soft cap must still be notified, got %d", got)
	}
}

func TestConcurrentChecksSingleFlight(t *testing.T) {
	var calls int32
	block := make(chan struct{})
	cache := New(func(ctx context.Context) (*identity.Account, error) {
		atomic.AddInt32(&calls, 1)
		<-block
		return &identity.Account{ID: "acct-1"}, nil
	}, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Check(context.Background(), true)
		}()
	}

	// Give the goroutines a moment to pile up, then release the fetch.
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("concurrent checks must share one in-flight fetch, got %d", got)
	}
}
