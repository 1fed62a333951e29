package discovery

import "errors"

// Common errors returned by the discovery package.
var (
	// ErrDirNotFound is returned when a workspace directory does not exist.
	ErrDirNotFound = errors.New("directory not found")

	// ErrInvalidExtension is returned when the link extension does not start with a dot.
	ErrInvalidExtension = errors.New("invalid link extension")
)
