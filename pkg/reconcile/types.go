// Package reconcile keeps workspace links, bookmarks and yank history in
// step with their targets.
//
// The Engine owns three registries, one per reference class. File events
// from the target directories are routed to it by category: a rename is
// applied at once to every descriptor whose cached name matches, a delete
// is ambiguous and is classified after a settle delay by resolving the
// reference's shortcut. A target that resolves elsewhere has moved; one
// that does not is gone.
//
// Example usage:
//
//	eng := reconcile.New(reconcile.DefaultOptions(), links, docs, tracker, j,
//	    reconcile.Watchers{Links: lw, Bookmarks: bw, Yank: yw}, log)
//	if _, err := eng.Sync(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	eng.HandleBookmark(ctx, event)
package reconcile

import (
	"context"
	"time"

	"github.com/0xmhha/lf-watcher/pkg/document"
	"github.com/0xmhha/lf-watcher/pkg/registry"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
	"github.com/0xmhha/lf-watcher/pkg/tracking"
)

// Links is the shortcut capability the engine needs.
type Links interface {
	CreateOrUpdate(linkPath, target string) (bool, error)
	Target(linkPath string) (string, error)
	SetTarget(ctx context.Context, linkPath, newTarget string) error
	Resolve(ctx context.Context, linkPath string) shortcut.Resolution
	Remove(linkPath string) error
	Rename(ctx context.Context, linkPath, newName string, attempts int, delay time.Duration) (string, error)
}

// Documents is the document store capability the engine needs.
type Documents interface {
	Load(ctx context.Context) (*document.Document, error)
	Reload(ctx context.Context) (*document.Document, bool, error)
	Mutate(ctx context.Context, edits ...document.Edit) (document.Applied, error)
	Current() *document.Document
}

// Watchers subscribe target directories, one per registry. Nil members
// leave that registry's directories unwatched.
type Watchers struct {
	Links     registry.Adder
	Bookmarks registry.Adder
	Yank      registry.Adder
}

// Options contains engine timing and naming settings.
type Options struct {
	// LinkSettle is the wait before a workspace link target delete is
	// classified. Default: 500ms.
	LinkSettle time.Duration

	// EntrySettle is the wait before a bookmark or yank target delete is
	// classified. Default: 1s.
	EntrySettle time.Duration

	// RenameRetries bounds attempts to rename a link file. Default: 5.
	RenameRetries int

	// RenameRetryDelay is the pause between rename attempts. Default: 200ms.
	RenameRetryDelay time.Duration

	// LinkExtension is the workspace link file extension. Default: ".lnk".
	LinkExtension string
}

// DefaultOptions returns the standard engine settings.
func DefaultOptions() Options {
	return Options{
		LinkSettle:       500 * time.Millisecond,
		EntrySettle:      time.Second,
		RenameRetries:    5,
		RenameRetryDelay: 200 * time.Millisecond,
		LinkExtension:    ".lnk",
	}
}

// Report summarizes a Sync pass.
type Report struct {
	// Bookmarks and YankEntries count the registered descriptors.
	Bookmarks   int
	YankEntries int

	// Healed lists offline moves written back to the document.
	Healed []tracking.Correction

	// Anchored and Failed count tracking link updates.
	Anchored int
	Failed   int

	// Pruned lists removed orphan tracking links.
	Pruned []string
}
