package repositories

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a conditional write finds the record in a
	// state that no longer allows it.
	ErrConflict = errors.New("record state conflict")
)
