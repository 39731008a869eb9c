package patients

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("patient not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDuplicateMRN = errors.New("mrn already registered")
)

// ForbiddenError reports a permission the actor lacks.
type ForbiddenError struct {
	Permission string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("missing permission %q", e.Permission)
}

// ValidationError carries per-field failures keyed by JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}
