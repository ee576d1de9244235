package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when a conditional write loses the
	// optimistic-concurrency race: the row exists but its version (or
	// status precondition) no longer matches.
	ErrVersionConflict = errors.New("version conflict")
)
