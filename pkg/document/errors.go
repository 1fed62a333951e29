package document

import "errors"

// Common errors returned by the document store.
var (
	// ErrInvalidDocument is returned when the document is not a YAML mapping
	// or one of the known sections has the wrong shape.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrReadFailed is returned when every read attempt failed.
	ErrReadFailed = errors.New("document read failed")

	// ErrDocumentEmpty is returned when the document is missing or holds
	// nothing but whitespace. The file manager truncates the file before
	// rewriting it, so this is a transient state with nothing to reconcile.
	ErrDocumentEmpty = errors.New("document is missing or empty")

	// ErrWriteFailed is returned when every write attempt failed.
	ErrWriteFailed = errors.New("document write failed")
)
