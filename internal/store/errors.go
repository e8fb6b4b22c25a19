package store

import "errors"

// Sentinel errors for artifact persistence.
var (
	// ErrNotFound indicates no row matches the requested id.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates the database could not be reached.
	ErrUnavailable = errors.New("database unavailable")
)
