package journal

import "errors"

// Common errors returned by the journal.
var (
	// ErrJournalClosed is returned when using a closed journal.
	ErrJournalClosed = errors.New("journal is closed")

	// ErrInvalidEntry is returned when an entry lacks a category or outcome.
	ErrInvalidEntry = errors.New("invalid journal entry")

	// ErrJournalLocked is returned by Open when another process holds the
	// database, usually a running daemon.
	ErrJournalLocked = errors.New("journal is locked by another process")
)
