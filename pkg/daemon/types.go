package daemon

import (
	"context"

	"github.com/0xmhha/lf-watcher/pkg/display"
	"github.com/0xmhha/lf-watcher/pkg/reconcile"
)

// Daemon watches link, bookmark and yank targets and reconciles their
// references until its context ends.
type Daemon interface {
	// Run loads the document, scans the workspace and processes file
	// events. It blocks until ctx is cancelled.
	Run(ctx context.Context) error

	// Scan performs one load, heal and workspace scan without watching.
	Scan(ctx context.Context) (display.Summary, error)

	// Engine exposes the reconciliation engine.
	Engine() *reconcile.Engine

	// Workspace returns the current workspace root.
	Workspace() string

	// Close releases the watchers. The journal is owned by the caller.
	Close() error
}
