/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses.

ERROR CATEGORIES:
  1. Not-found errors - update/delete against a missing record
  2. Validation errors - field-level input failures (field -> message)
  3. Transition errors - illegal status moves

USAGE:
  if errors.Is(err, ledger.ErrDealNotFound) { ... }

  var verr *ledger.ValidationError
  if errors.As(err, &verr) {
      for field, msg := range verr.Fields { ... }
  }
*/
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDealNotFound is returned when updating or deleting a deal id that
	// is not in the active ledger. Archived deals are never editable, so
	// this also covers edits aimed at a prior month.
	ErrDealNotFound = errors.New("deal not found in active ledger")

	// ErrMemberNotFound is returned by ToggleActive for an unknown member.
	// RemoveMember deliberately does NOT return this; removal of an absent
	// member is a no-op.
	ErrMemberNotFound = errors.New("team member not found")

	// ErrDuplicateDealID is returned when creating a deal whose caller-
	// supplied deal number already exists in the active ledger.
	ErrDuplicateDealID = errors.New("deal id already exists in active ledger")

	// ErrIllegalTransition is returned by SetStatus for moves outside the
	// status state machine. Full updates may still override.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// =============================================================================
// VALIDATION ERROR - Structured field -> message map
// =============================================================================

// ValidationError reports input failures per field. A failed validation
// applies nothing: either the whole write succeeds or nothing is persisted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// =============================================================================
// TRANSITION ERROR - Carries the attempted move
// =============================================================================

type TransitionError struct {
	From DealStatus
	To   DealStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDealNotFound) || errors.Is(err, ErrMemberNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrDuplicateDealID)
}
