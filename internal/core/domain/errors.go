package domain

import "errors"

var (
	// ErrNoAvailableBackends is returned when the resolved chain is empty.
	ErrNoAvailableBackends = errors.New("no available backends")

	// ErrDeadlineExceeded is returned when the task deadline passes mid-dispatch.
	ErrDeadlineExceeded = errors.New("task deadline exceeded")

	// ErrUnknownBackend is returned for an id that was never registered.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrDuplicateBackend is returned when an id is registered twice.
	ErrDuplicateBackend = errors.New("backend already registered")
)
