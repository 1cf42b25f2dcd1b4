package application

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNotFound     = errors.New("not found")
	ErrRejected     = errors.New("command rejected")
	ErrInvalidQuery = errors.New("invalid query")
	ErrNoRoot       = errors.New("no search root")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// StructuralError reports a command that would break the tree or stack
// structure. The session is left unchanged.
type StructuralError struct {
	Op     string
	Target string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot %s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("cannot %s %s", e.Op, e.Target)
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrRejected
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}
