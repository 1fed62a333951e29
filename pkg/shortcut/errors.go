package shortcut

import "errors"

// Common errors returned by the shortcut store.
var (
	// ErrLinkNotFound is returned when a link file does not exist.
	ErrLinkNotFound = errors.New("link not found")

	// ErrLinkCorrupt is returned when a link file cannot be decoded or has no target.
	ErrLinkCorrupt = errors.New("link is corrupt")

	// ErrEmptyTarget is returned when asked to point a link at an empty path.
	ErrEmptyTarget = errors.New("empty link target")

	// ErrIdentityUnsupported is returned on platforms without file identities.
	ErrIdentityUnsupported = errors.New("file identity not supported")
)
