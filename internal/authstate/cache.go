// Package authstate maintains the process-wide authenticated-identity
// snapshot. The cache is constructed once in main and passed by
// reference; it is the only component allowed to mutate the snapshot.
package authstate

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"guardianlink/internal/identity"
)

// ErrConnectionLost annotates snapshots served while the network is
// down. It is non-fatal and never flips Authenticated.
const ErrConnectionLost = "connection lost"

// DefaultTTL is how long a snapshot is served without a live check
const DefaultTTL = 30 * time.Second

// listenerSoftCap guards against subscription leaks. Exceeding it logs
// a warning but does not reject the listener.
const listenerSoftCap = 32

// Snapshot is the in-memory auth state consumed by the rest of the app
type Snapshot struct {
	Account       *identity.Account
	Authenticated bool
	Loading       bool
	Err           string
	LastChecked   time.Time
}

// Fetcher performs a live identity check against the provider
type Fetcher func(ctx context.Context) (*identity.Account, error)

// Listener receives every snapshot change, plus one immediate call on subscribe
type Listener func(Snapshot)

// Cache holds the snapshot, serves it within a TTL window, and fans out
// changes to subscribers. Writes issued while offline are queued and
// replayed on reconnect.
type Cache struct {
	mu        sync.Mutex
	fetch     Fetcher
	ttl       time.Duration
	snap      Snapshot
	listeners map[int]Listener
	nextID    int
	offline   bool
	inflight  bool
	queue     []func(ctx context.Context) error
}

// New creates a cache in the Loading state
func New(fetch Fetcher, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		fetch:     fetch,
		ttl:       ttl,
		snap:      Snapshot{Loading: true},
		listeners: make(map[int]Listener),
	}
}

// Current returns the last-known snapshot without any network call
func (c *Cache) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Offline reports whether the cache believes the network is down
func (c *Cache) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

// Check returns the cached snapshot when it is younger than the TTL (or
// whenever the network is down, annotated with a staleness error), and
// otherwise performs a live identity check. Concurrent calls inside the
// window short-circuit to the cache, so at most one provider call is in
// flight at a time.
func (c *Cache) Check(ctx context.Context, force bool) Snapshot {
	c.mu.Lock()
	if c.offline {
		snap := c.snap
		snap.Err = ErrConnectionLost
		c.mu.Unlock()
		return snap
	}
	if !force && !c.snap.Loading && time.Since(c.snap.LastChecked) < c.ttl {
		snap := c.snap
		c.mu.Unlock()
		return snap
	}
	if c.inflight {
		snap := c.snap
		c.mu.Unlock()
		return snap
	}
	c.inflight = true
	c.mu.Unlock()

	account, err := c.fetch(ctx)

	c.mu.Lock()
	c.inflight = false
	next := c.snap
	next.Loading = false
	next.LastChecked = time.Now()

	switch {
	case err == nil:
		next.Account = account
		next.Authenticated = account != nil
		next.Err = ""
	case identity.IsOffline(err):
		c.offline = true
		next.Err = ErrConnectionLost
	case errors.Is(err, identity.ErrUnauthorized):
		next.Account = nil
		next.Authenticated = false
		next.Err = ""
	default:
		next.Err = err.Error()
	}

	return c.commit(next)
}

// Subscribe registers a listener, invokes it immediately with the
// current state, and returns an unsubscribe function.
func (c *Cache) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	count := len(c.listeners)
	snap := c.snap
	c.mu.Unlock()

	if count > listenerSoftCap {
		log.Printf("Warning: auth-state listener count %d exceeds soft cap %d, possible leak", count, listenerSoftCap)
	}

	fn(snap)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SetAccount records a sign-in observed outside the fetch path
func (c *Cache) SetAccount(account *identity.Account) {
	c.mu.Lock()
	next := c.snap
	next.Account = account
	next.Authenticated = account != nil
	next.Loading = false
	next.Err = ""
	next.LastChecked = time.Now()
	c.commit(next)
}

// ClearAccount records a sign-out
func (c *Cache) ClearAccount() {
	c.SetAccount(nil)
}

// SetOffline marks the connection as lost. Authenticated is left as-is;
// the snapshot only gains a non-fatal staleness error.
func (c *Cache) SetOffline() {
	c.mu.Lock()
	if c.offline {
		c.mu.Unlock()
		return
	}
	c.offline = true
	next := c.snap
	next.Err = ErrConnectionLost
	c.commit(next)
}

// SetOnline clears the connection-lost state, triggers an immediate
// refresh, and replays queued writes. Failed replays stay queued for
// the next reconnect.
func (c *Cache) SetOnline(ctx context.Context) {
	c.mu.Lock()
	if !c.offline {
		c.mu.Unlock()
		return
	}
	c.offline = false
	queue := c.queue
	c.queue = nil
	next := c.snap
	next.Err = ""
	c.commit(next)

	c.Check(ctx, true)

	for _, op := range queue {
		if err := op(ctx); err != nil {
			log.Printf("Queued write replay failed: %v", err)
			c.QueueWrite(op)
		}
	}
}

// QueueWrite stores a write operation to replay once connectivity returns
func (c *Cache) QueueWrite(op func(ctx context.Context) error) {
	c.mu.Lock()
	c.queue = append(c.queue, op)
	c.mu.Unlock()
}

// Run refreshes the snapshot on a jittered interval (base ± up to 30s)
// until the context is cancelled. The jitter avoids synchronized
// refresh bursts across many processes.
func (c *Cache) Run(ctx context.Context, base time.Duration) {
	for {
		timer := time.NewTimer(jitter(base))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			c.Check(ctx, true)
		}
	}
}

// commit installs next as the snapshot and notifies listeners if it
// actually changed. Must be called with the mutex held; it unlocks.
func (c *Cache) commit(next Snapshot) Snapshot {
	changed := !snapshotsEqual(c.snap, next)
	c.snap = next

	var fns []Listener
	if changed {
		fns = make([]Listener, 0, len(c.listeners))
		for _, fn := range c.listeners {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
	return next
}

// snapshotsEqual compares everything except LastChecked, so a refresh
// that observes no change produces no listener fan-out.
func snapshotsEqual(a, b Snapshot) bool {
	return a.Authenticated == b.Authenticated &&
		a.Loading == b.Loading &&
		a.Err == b.Err &&
		reflect.DeepEqual(a.Account, b.Account)
}

func jitter(base time.Duration) time.Duration {
	offset := time.Duration(rand.Int63n(int64(60*time.Second))) - 30*time.Second
	d := base + offset
	if d < time.Second {
		d = time.Second
	}
	return d
}
