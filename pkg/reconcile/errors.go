package reconcile

import "errors"

var (
	// ErrNoDocument is returned when no document store is configured.
	ErrNoDocument = errors.New("no document store configured")

	// ErrNotLink is returned when a path does not carry the link extension.
	ErrNotLink = errors.New("not a link file")
)
