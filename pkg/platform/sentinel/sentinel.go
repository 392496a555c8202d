// Package sentinel holds the store-level facts that services translate into
// domain errors. Stores return them, possibly wrapped; callers match with
// errors.Is. Input validation errors belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound: no record with that key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: duplicate key or a lost compare-and-swap on a version.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed: a one-shot record (challenge, step-up proof) was consumed.
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState: the record is not in a state that allows the operation.
	ErrInvalidState = errors.New("invalid state")
)
