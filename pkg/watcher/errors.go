package watcher

import "errors"

var (
	// ErrWatcherClosed is returned by every method once Close was called.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("watcher is already running")

	// ErrNotStarted is returned by Stop before Start.
	ErrNotStarted = errors.New("watcher is not running")

	// ErrNoWatchPaths is returned by Start when none of the given paths
	// could be watched.
	ErrNoWatchPaths = errors.New("none of the watch paths exist")

	// ErrNotDirectory is returned by Add for an empty path or a path that
	// is not a directory. Only directories are subscribed.
	ErrNotDirectory = errors.New("not a directory")

	// ErrBreakerOpen is sent on Errors when repeated notification errors
	// paused event delivery.
	ErrBreakerOpen = errors.New("watcher paused after repeated errors")
)
