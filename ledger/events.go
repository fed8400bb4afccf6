/*
events.go - Typed change broadcast for cross-view consistency

PURPOSE:
  The same user may have the ledger open in two contexts (two tabs, the
  home view and a report view). Writes in one context are not visible in
  the other without a signal. This file provides an explicit, typed
  publish/subscribe surface so the consistency contract is enforced by
  the type system rather than by convention.

GUARANTEES (and non-guarantees):
  - Best-effort: delivery is synchronous and in-process. Subscribers in
    another process must fall back to poll-on-focus.
  - No ordering across users; per-user publishes are delivered in the
    order they occur.
  - No conflict resolution. Last write wins; the broadcast only tells
    listeners to re-read.
*/
package ledger

import "sync"

// =============================================================================
// CHANGE EVENTS
// =============================================================================

type ChangeKind string

const (
	ChangeDeals    ChangeKind = "deals"
	ChangeTeam     ChangeKind = "team"
	ChangePayPlan  ChangeKind = "payPlan"
	ChangeRollover ChangeKind = "rollover"
)

// Change carries the updated record set so subscribers can refresh without
// a re-read. Only the field matching Kind is populated.
type Change struct {
	UserID string
	Kind   ChangeKind

	Deals   []Deal
	Members []TeamMember
	// Set for ChangeRollover: the month that was archived, if any.
	ArchivedMonth MonthKey
}

// =============================================================================
// BROADCASTER
// =============================================================================

// Broadcaster is an in-process, per-user change bus.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Change)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[int]func(Change))}
}

// Subscribe registers fn for a user's changes. The returned cancel func
// removes the subscription; calling it twice is safe.
func (b *Broadcaster) Subscribe(userID string, fn func(Change)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]func(Change))
	}
	b.subs[userID][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[userID], id)
	}
}

// Publish delivers a change to every subscriber for the user, synchronously.
// A nil Broadcaster is valid and publishes nothing, so components can treat
// the bus as optional.
func (b *Broadcaster) Publish(c Change) {
	if b == nil {
		return
	}
	b.mu.RLock()
	fns := make([]func(Change), 0, len(b.subs[c.UserID]))
	for _, fn := range b.subs[c.UserID] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}
