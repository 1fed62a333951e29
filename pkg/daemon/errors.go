package daemon

import "errors"

var (
	// ErrDaemonClosed is returned when operations are attempted on a closed daemon.
	ErrDaemonClosed = errors.New("daemon is closed")

	// ErrDaemonRunning is returned when trying to run an already running daemon.
	ErrDaemonRunning = errors.New("daemon is already running")

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid daemon configuration")
)
