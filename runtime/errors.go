// Package runtime provides the client surface over a relational backend:
// compiled CRUD reads, aggregations, and optimistically locked writes.
package runtime

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for runtime operations.
var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownResource is returned when the schema does not declare the
	// requested resource.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrUnsupportedProvider is returned for providers without a driver.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrOptimisticLockConflict is returned when a guarded write loses to a
	// concurrent writer.
	ErrOptimisticLockConflict = errors.New("optimistic lock conflict")

	// ErrLockFieldMissing is returned when a lock policy names a field the
	// resource does not declare.
	ErrLockFieldMissing = errors.New("resource lacks lock field")

	// ErrInvalidExpectedVersion is returned when a version-strategy update
	// is given a non-integer expected value.
	ErrInvalidExpectedVersion = errors.New("expected version must be an integer")
)

// ConflictError reports a lost update. It carries the expected and observed
// lock-field values for diagnostics; retrying is the caller's decision.
type ConflictError struct {
	Resource string
	ID       interface{}
	Expected interface{}
	Current  interface{}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("optimistic lock conflict on %s id=%v: expected %v, current %v",
		e.Resource, e.ID, e.Expected, e.Current)
}

// Is reports ErrOptimisticLockConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrOptimisticLockConflict
}

// BulkConflictError reports the conflicting rows of a guarded batch update.
// The whole batch is rolled back; no row is partially applied.
type BulkConflictError struct {
	Resource  string
	Conflicts []ConflictError
}

// Error implements the error interface.
func (e *BulkConflictError) Error() string {
	ids := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		ids[i] = fmt.Sprintf("%v", c.ID)
	}
	return fmt.Sprintf("optimistic lock conflict on %s for %d of batch: ids [%s]",
		e.Resource, len(e.Conflicts), strings.Join(ids, ", "))
}

// Is reports ErrOptimisticLockConflict.
func (e *BulkConflictError) Is(target error) bool {
	return target == ErrOptimisticLockConflict
}

// NotFoundError is returned when a record is not found.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("no %s found with id %v", e.Resource, e.ID)
	}
	return fmt.Sprintf("no %s found", e.Resource)
}

// Is reports ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// QueryError represents a query execution error with context.
type QueryError struct {
	Operation string
	Resource  string
	Cause     error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s on %s: %v", e.Operation, e.Resource, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is an optimistic lock conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOptimisticLockConflict)
}
