package domain

import (
	"errors"
	"fmt"
)

// ErrMissingID is returned when an operation that requires a record
// identifier was invoked without one.
var ErrMissingID = errors.New("guid not provided")

// ValidationError reports one or more payload rule violations, keyed by
// field name. It maps to HTTP 400 with the field map in the body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload validation failed: %d field(s)", len(e.Fields))
}

// NotFoundError reports that no live record exists under the given
// identifier. Expired records produce the same error as absent ones.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("guid %s not found or expired", e.ID)
}

// PersistenceError reports a durable store failure: connection error,
// constraint violation, or an update that matched nothing. The core
// never retries these; retry policy belongs to the caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store %s failed", e.Op)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
