/*
store.go - Persistence contract for per-user JSON records

PURPOSE:
  Defines the interface between the domain logic and storage. The store
  is a namespaced key/value layer: every record is a JSON blob keyed by
  (entityKind, userID). Different implementations can use SQLite or
  in-memory storage.

CONTRACT:
  - Get on a missing key returns (nil, nil). Absence is not an error.
  - Set overwrites the whole record. There is no partial update.
  - The store performs NO validation of shape; callers own the schema.
  - Writes are synchronous: a Get immediately after Set sees the value.

CORRUPTION:
  Malformed stored JSON is treated as absence by the typed helpers in
  this package (see codec.go): the caller receives the zero value and a
  warning goes to the operational log. Corruption is never surfaced as
  an error to domain callers.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - codec.go: JSON read/write helpers with corruption tolerance
  - migrate.go: Legacy field normalization at the decode boundary
*/
package ledger

import "context"

// =============================================================================
// ENTITY KINDS - Namespaces within a user's stored data
// =============================================================================

const (
	KindDeals          = "deals"
	KindTeamMembers    = "teamMembers"
	KindPayPlan        = "payPlan"
	KindRolloverMarker = "rolloverMonth"

	archiveKindPrefix = "dealsArchive-"
)

// ArchiveKind returns the entity kind under which a month's frozen deal
// snapshot is stored, e.g. "dealsArchive-2025-03".
func ArchiveKind(month MonthKey) string {
	return archiveKindPrefix + string(month)
}

// StorageKey renders the canonical "{entityKind}_{userId}" key, the
// enumerable per-user pattern used for debugging and export.
func StorageKey(entityKind, userID string) string {
	return entityKind + "_" + userID
}

// =============================================================================
// STORE - Namespaced key/value persistence
// =============================================================================

// Store persists JSON-serializable records scoped by (entityKind, userID).
type Store interface {
	// Get returns the stored blob, or (nil, nil) if absent.
	Get(ctx context.Context, entityKind, userID string) ([]byte, error)

	// Set overwrites the record wholesale.
	Set(ctx context.Context, entityKind, userID string, value []byte) error

	// Remove deletes the record. Removing an absent record is a no-op.
	Remove(ctx context.Context, entityKind, userID string) error

	// ListKinds returns every entity kind stored for a user.
	// Used to enumerate archive buckets and for export/debugging.
	ListKinds(ctx context.Context, userID string) ([]string, error)

	// ListUsers returns every user id with at least one stored record.
	// Used by the rollover scheduler.
	ListUsers(ctx context.Context) ([]string, error)
}
