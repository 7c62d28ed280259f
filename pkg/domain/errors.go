package domain

import "fmt"

// ValidationError rejects a write whose payload misses a required field or
// carries an unparseable value. It is the only error class raised for caller
// mistakes; read paths return empty results instead of failing.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid event: field %s %s", e.Field, e.Reason)
}

// StoreError wraps a persistence-layer failure. It is fatal for the operation
// in progress; no automatic retry is attempted.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("event store: %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error { return e.Err }
