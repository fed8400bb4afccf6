/*
rollover.go - Calendar-month rollover and archival

PURPOSE:
  Detects month transitions and moves the finished month's ledger into a
  dated, read-only archive bucket before resetting the active ledger.
  Invoked at the start of every session/view that depends on deal data,
  and periodically by the scheduler - so it MUST be safe to call
  redundantly.

ALGORITHM (per invocation):
  1. Read the rollover marker (last month processed) and compute the
     current YYYY-MM from the clock.
  2. If they differ:
     a. Archive the active ledger verbatim under the MARKER's month
        (the month that just ended) - skipped if that bucket already
        exists, and skipped if the ledger is empty.
     b. Clear the active ledger.
     c. Advance the marker to the current month.
  3. If they match, no-op.

IDEMPOTENCE:
  The already-existing bucket is the guard against double-archival.
  It is re-checked on every invocation, never cached: invocation may
  happen redundantly from multiple call sites in adjacent sessions.

FIRST RUN:
  An unset marker means this user has never rolled over. There is no
  vacated month to archive, so the marker is initialized to the current
  month and the active ledger is left untouched.
*/
package ledger

import (
	"context"
	"log"
	"sort"
	"time"
)

// Archiver runs month transitions and serves archived buckets.
type Archiver struct {
	store  Store
	events *Broadcaster
	now    func() time.Time
}

func NewArchiver(store Store, events *Broadcaster) *Archiver {
	return &Archiver{store: store, events: events, now: time.Now}
}

// WithClock overrides the archiver's clock. Tests only.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

// RolloverResult reports what a rollover check did.
type RolloverResult struct {
	Rolled bool
	// ArchivedMonth is set when a bucket was written; empty when the
	// vacated ledger was empty or the bucket already existed.
	ArchivedMonth MonthKey
}

// EnsureCurrentMonth performs the rollover check described above.
func (a *Archiver) EnsureCurrentMonth(ctx context.Context, userID string) (RolloverResult, error) {
	current := MonthKeyOf(a.now())

	marker, err := a.readMarker(ctx, userID)
	if err != nil {
		return RolloverResult{}, err
	}
	if marker == current {
		return RolloverResult{}, nil
	}

	if marker == "" {
		// First run for this user: nothing to archive, adopt the month.
		if err := setJSON(ctx, a.store, KindRolloverMarker, userID, string(current)); err != nil {
			return RolloverResult{}, err
		}
		return RolloverResult{Rolled: true}, nil
	}

	deals, err := readDealList(ctx, a.store, KindDeals, userID)
	if err != nil {
		return RolloverResult{}, err
	}

	result := RolloverResult{Rolled: true}
	if len(deals) > 0 {
		exists, err := a.bucketExists(ctx, userID, marker)
		if err != nil {
			return RolloverResult{}, err
		}
		if exists {
			// A concurrent invocation already archived this month.
			log.Printf("[Rollover] bucket %s already exists for user %s, skipping archive",
				marker, userID)
		} else {
			if err := setJSON(ctx, a.store, ArchiveKind(marker), userID, toStoredList(deals)); err != nil {
				return RolloverResult{}, err
			}
			result.ArchivedMonth = marker
		}
	}

	if err := setJSON(ctx, a.store, KindDeals, userID, []storedDeal{}); err != nil {
		return RolloverResult{}, err
	}
	if err := setJSON(ctx, a.store, KindRolloverMarker, userID, string(current)); err != nil {
		return RolloverResult{}, err
	}

	a.events.Publish(Change{UserID: userID, Kind: ChangeDeals, Deals: []Deal{}})
	a.events.Publish(Change{UserID: userID, Kind: ChangeRollover, ArchivedMonth: result.ArchivedMonth})
	log.Printf("[Rollover] user %s advanced %s -> %s (archived: %q)",
		userID, marker, current, string(result.ArchivedMonth))
	return result, nil
}

// ListArchivedMonths enumerates stored bucket keys, most recent first.
func (a *Archiver) ListArchivedMonths(ctx context.Context, userID string) ([]MonthKey, error) {
	kinds, err := a.store.ListKinds(ctx, userID)
	if err != nil {
		return nil, err
	}

	months := []MonthKey{}
	for _, kind := range kinds {
		if len(kind) > len(archiveKindPrefix) && kind[:len(archiveKindPrefix)] == archiveKindPrefix {
			if mk, ok := ParseMonthKey(kind[len(archiveKindPrefix):]); ok {
				months = append(months, mk)
			}
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i] > months[j] })
	return months, nil
}

// ArchivedDeals returns a month's frozen snapshot, or [] for unknown keys.
func (a *Archiver) ArchivedDeals(ctx context.Context, userID string, month MonthKey) ([]Deal, error) {
	return readDealList(ctx, a.store, ArchiveKind(month), userID)
}

func (a *Archiver) readMarker(ctx context.Context, userID string) (MonthKey, error) {
	var raw string
	if _, err := getJSON(ctx, a.store, KindRolloverMarker, userID, &raw); err != nil {
		return "", err
	}
	if raw == "" {
		return "", nil
	}
	mk, ok := ParseMonthKey(raw)
	if !ok {
		// Corrupt marker: treat as unset, same as any other corrupt record.
		log.Printf("[Rollover] malformed marker %q for user %s (treating as unset)", raw, userID)
		return "", nil
	}
	return mk, nil
}

func (a *Archiver) bucketExists(ctx context.Context, userID string, month MonthKey) (bool, error) {
	data, err := a.store.Get(ctx, ArchiveKind(month), userID)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}
