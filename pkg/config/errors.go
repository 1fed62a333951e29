package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoDocumentPath is returned when the shared document path is empty.
	ErrNoDocumentPath = errors.New("no document path specified")

	// ErrNoTrackingDir is returned when the tracking directory is empty.
	ErrNoTrackingDir = errors.New("no tracking directory specified")

	// ErrInvalidDelay is returned when a delay or timeout is <= 0.
	ErrInvalidDelay = errors.New("invalid delay: must be > 0")

	// ErrInvalidRetries is returned when a retry count is <= 0.
	ErrInvalidRetries = errors.New("invalid retry count: must be > 0")

	// ErrInvalidLinkExtension is returned when the link extension does not start with a dot.
	ErrInvalidLinkExtension = errors.New("invalid link extension: must start with '.'")

	// ErrInvalidSearch is returned when the resolution search bounds are invalid.
	ErrInvalidSearch = errors.New("invalid search bounds: depth must be >= 0 and budget > 0")

	// ErrNoJournalPath is returned when the journal path is empty.
	ErrNoJournalPath = errors.New("no journal path specified")

	// ErrInvalidRetention is returned when journal retention is <= 0.
	ErrInvalidRetention = errors.New("invalid retention: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
