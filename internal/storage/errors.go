package storage

import "errors"

var (
	// ErrUnavailable is returned when the store handle is absent or closed.
	// Callers that can degrade (alert checks, session bootstrap) treat it as
	// an empty result instead of failing the whole flow.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated,
	// e.g. a second user with the same email.
	ErrDuplicate = errors.New("already exists")
)
