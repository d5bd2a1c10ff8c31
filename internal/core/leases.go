package core

import (
	"sync"
	"time"
)

// LeaseTable marks monitors whose check is in flight.
//
// A lease expires after its TTL so that a check which never released it
// (a crashed goroutine, a hung probe) cannot block the monitor forever.
type LeaseTable struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    Clock
	next   uint64
	leases map[int64]lease
}

type lease struct {
	token   uint64
	expires time.Time
}

// NewLeaseTable creates an empty lease table.
func NewLeaseTable(ttl time.Duration, now Clock) *LeaseTable {
	if now == nil {
		now = systemClock
	}
	return &LeaseTable{
		ttl:    ttl,
		now:    now,
		leases: make(map[int64]lease),
	}
}

// Acquire takes the lease of monitorID.
//
// It returns false when an unexpired lease is held. The returned release
// function is safe to call more than once and never drops a lease that was
// taken over after expiry.
func (t *LeaseTable) Acquire(monitorID int64) (release func(), ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if held, exists := t.leases[monitorID]; exists && now.Before(held.expires) {
		return nil, false
	}

	t.next++
	token := t.next
	t.leases[monitorID] = lease{token: token, expires: now.Add(t.ttl)}

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if held, exists := t.leases[monitorID]; exists && held.token == token {
			delete(t.leases, monitorID)
		}
	}, true
}

// Held reports whether monitorID has an unexpired lease.
func (t *LeaseTable) Held(monitorID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	held, exists := t.leases[monitorID]
	return exists && t.now().Before(held.expires)
}
