package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// =============================================================================
// CODEC - Tolerant JSON read/write over the Store
// =============================================================================

// DecodeTolerant unmarshals a stored blob into out. A nil blob or malformed
// JSON is treated as absence: out is left untouched, a warning goes to the
// operational log, and false is returned. Never returns an error; corrupt
// stored data must not break callers.
func DecodeTolerant(entityKind, userID string, data []byte, out any) bool {
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("[Store] corrupt record %s: %v (treating as empty)",
			StorageKey(entityKind, userID), err)
		return false
	}
	return true
}

// getJSON reads and decodes a record. Store-level failures propagate;
// corruption does not.
func getJSON(ctx context.Context, s Store, entityKind, userID string, out any) (bool, error) {
	data, err := s.Get(ctx, entityKind, userID)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", StorageKey(entityKind, userID), err)
	}
	return DecodeTolerant(entityKind, userID, data, out), nil
}

// setJSON encodes and writes a record wholesale.
func setJSON(ctx context.Context, s Store, entityKind, userID string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", StorageKey(entityKind, userID), err)
	}
	if err := s.Set(ctx, entityKind, userID, data); err != nil {
		return fmt.Errorf("set %s: %w", StorageKey(entityKind, userID), err)
	}
	return nil
}

// readDealList loads a deal list stored under the given kind (active ledger
// or an archive bucket), running the legacy-schema migration on each record.
// Missing or corrupt data yields an empty, non-nil slice.
func readDealList(ctx context.Context, s Store, entityKind, userID string) ([]Deal, error) {
	var stored []storedDeal
	if _, err := getJSON(ctx, s, entityKind, userID, &stored); err != nil {
		return nil, err
	}
	deals := make([]Deal, 0, len(stored))
	for _, sd := range stored {
		deals = append(deals, sd.canonical())
	}
	return deals, nil
}
