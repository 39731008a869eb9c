package encounter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when no authenticated actor is present.
	ErrUnauthorized = errors.New("authentication required")

	// ErrNotFound is returned when the referenced encounter does not exist.
	ErrNotFound = errors.New("encounter not found")

	// ErrVersionConflict is returned when a concurrent update won the write.
	// The caller should reload and retry the whole operation.
	ErrVersionConflict = errors.New("encounter was modified concurrently")
)

// ForbiddenError means the actor is authenticated but lacks the permission
// for the operation.
type ForbiddenError struct {
	Permission string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("missing permission %q", e.Permission)
}

// ValidationError carries field-keyed input problems for form correction.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// TransitionError means the requested status change is not in the transition
// table. It carries both states so the caller can explain the rejection.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition encounter from %q to %q", e.From, e.To)
}

// LockedError means a field edit was attempted on a signed, locked, or
// voided encounter. Amendment is the only way forward.
type LockedError struct {
	Status Status
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("encounter in status %q cannot be edited; use amend", e.Status)
}
