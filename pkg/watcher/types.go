// Package watcher provides file system monitoring on top of fsnotify.
//
// One Watcher serves many directories. Directories are added lazily with Add
// and stay watched until they disappear. fsnotify reports a rename as a
// rename of the old name followed by a create of the new one; the watcher
// pairs the two inside a short window and emits a single OpRename. A rename
// whose new name never shows up in a watched directory is emitted as
// OpRemove.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    Recursive: true,
//	    Filter:    func(p string) bool { return filepath.Ext(p) == ".lnk" },
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, []string{workspace}); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range w.Events() {
//	    fmt.Printf("%s: %s\n", event.Op, event.Path)
//	}
package watcher

import (
	"context"
	"path/filepath"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created or moved in
	OpWrite                 // File modified
	OpRemove                // File deleted or moved out of view
	OpRename                // File renamed; NewPath holds the new name
	OpChmod                 // File permissions changed
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Event represents a file system event.
type Event struct {
	// Path is the absolute path that triggered the event. For OpRename it
	// is the old path.
	Path string

	// NewPath is the new path of an OpRename.
	NewPath string

	// Op is the operation that triggered the event.
	Op Op

	// IsDir is set when the path is known to be a directory.
	IsDir bool

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Dir returns the parent directory of Path.
func (e Event) Dir() string {
	return filepath.Dir(e.Path)
}

// Name returns the base name of Path.
func (e Event) Name() string {
	return filepath.Base(e.Path)
}

// Watcher provides file system monitoring.
type Watcher interface {
	// Start adds the initial paths and begins processing events in the
	// background. Missing paths are skipped. It returns ErrNoWatchPaths when
	// paths were given but none of them exist.
	Start(ctx context.Context, paths []string) error

	// Add watches a directory. With Recursive set its subdirectories are
	// watched too. Adding a watched directory is a no-op.
	Add(path string) error

	// Watched reports whether a directory is being watched.
	Watched(path string) bool

	// Stop stops event processing.
	Stop() error

	// Events returns the channel for receiving file system events.
	// The channel is closed when the watcher is closed.
	Events() <-chan Event

	// Errors returns the channel for receiving watcher errors.
	// The channel is closed when the watcher is closed.
	Errors() <-chan error

	// Close closes the watcher and releases resources.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval coalesces events for the same path that arrive
	// within the interval. Zero disables debouncing.
	DebounceInterval time.Duration

	// RenamePairWindow is how long a rename waits for its matching create.
	// Default: 100ms.
	RenamePairWindow time.Duration

	// Recursive watches subdirectories of added paths, including ones
	// created later. Files found in a new subdirectory are reported as
	// OpCreate.
	Recursive bool

	// Filter selects the file paths that are reported. Nil reports all.
	// In recursive mode directory events are always reported.
	Filter func(path string) bool

	// CircuitBreakerThreshold is the number of consecutive failures
	// before the circuit breaker opens.
	// Default: 5.
	CircuitBreakerThreshold int

	// Name labels the watcher in logs.
	Name string
}
