package reconcile

import (
	"context"
	"path/filepath"

	"github.com/0xmhha/lf-watcher/pkg/document"
	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/journal"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
	"github.com/0xmhha/lf-watcher/pkg/watcher"
)

// HandleBookmark routes an event from a bookmark target directory.
func (e *Engine) HandleBookmark(ctx context.Context, ev watcher.Event) {
	switch ev.Op {
	case watcher.OpRename:
		e.BookmarkRenamed(ctx, ev.Path, ev.NewPath)
	case watcher.OpRemove:
		e.BookmarkDeleted(ctx, ev.Path)
	}
}

// HandleYank routes an event from a yank target directory.
func (e *Engine) HandleYank(ctx context.Context, ev watcher.Event) {
	switch ev.Op {
	case watcher.OpRename:
		e.YankRenamed(ctx, ev.Path, ev.NewPath)
	case watcher.OpRemove:
		e.YankDeleted(ctx, ev.Path)
	}
}

// trackingChange is a tracking link update applied once the document
// edit it belongs to has been written.
type trackingChange struct {
	remove string
	anchor string
	target string
}

// outcome is a journal entry waiting on a document write.
type outcome struct {
	cat     journal.Category
	out     journal.Outcome
	key     string
	oldPath string
	newPath string
}

// commit writes edits in one read-modify-write cycle. The tracking change
// and outcome at index i follow edits[i] and are applied only when that
// edit matched the document; an entry removed in the meantime by the file
// manager leaves no tracking link or journal entry behind.
func (e *Engine) commit(ctx context.Context, edits []document.Edit, changes []trackingChange, outcomes []outcome) bool {
	applied, err := e.docs.Mutate(ctx, edits...)
	if err != nil {
		e.log.Warn("document not updated", "edits", len(edits), "error", err)
		return false
	}

	for i, ok := range applied {
		if !ok {
			e.log.Debug("document entry already gone", "key", outcomes[i].key)
			continue
		}

		c := changes[i]
		if c.remove != "" && e.tracking != nil {
			if err := e.tracking.Remove(c.remove); err != nil {
				e.log.Warn("tracking link not removed", "link", c.remove, "error", err)
			}
		}
		if c.anchor != "" && e.tracking != nil {
			if err := e.tracking.Anchor(c.anchor, c.target); err != nil {
				e.log.Warn("tracking link not anchored", "link", c.anchor, "error", err)
			}
		}

		o := outcomes[i]
		e.log.Info("document entry "+string(o.out), "category", o.cat, "key", o.key, "from", o.oldPath, "to", o.newPath)
		e.record(o.cat, o.out, o.key, o.oldPath, o.newPath)
	}
	return true
}

// BookmarkRenamed points every bookmark on oldPath at newPath.
func (e *Engine) BookmarkRenamed(ctx context.Context, oldPath, newPath string) {
	dir := filepath.Dir(oldPath)
	matches := e.Bookmarks.Match(dir, filepath.Base(oldPath))
	if len(matches) == 0 {
		return
	}

	edits := make([]document.Edit, 0, len(matches))
	changes := make([]trackingChange, 0, len(matches))
	outcomes := make([]outcome, 0, len(matches))
	for _, d := range matches {
		edits = append(edits, document.RenameBookmark(d.BookmarkKey, newPath))
		changes = append(changes, trackingChange{anchor: e.bookmarkLink(d.BookmarkKey), target: newPath})
		outcomes = append(outcomes, outcome{journal.CategoryBookmark, journal.OutcomeRenamed, d.BookmarkKey, oldPath, newPath})
	}

	if e.commit(ctx, edits, changes, outcomes) {
		e.Bookmarks.Remove(dir, matches...)
		e.refresh()
	}
}

// BookmarkDeleted schedules classification of a vanished bookmark target.
// A bookmark whose tracking link resolves elsewhere follows its target;
// any other is removed with its tracking link.
func (e *Engine) BookmarkDeleted(ctx context.Context, path string) {
	dir := filepath.Dir(path)
	matches := e.Bookmarks.Match(dir, filepath.Base(path))
	if len(matches) == 0 {
		return
	}

	e.log.Debug("bookmark target deleted", "path", path, "bookmarks", len(matches))

	e.sched.After(ctx, e.opts.EntrySettle, "bookmark-delete", func(ctx context.Context) {
		var (
			edits    []document.Edit
			changes  []trackingChange
			outcomes []outcome
		)
		for _, d := range matches {
			link := e.bookmarkLink(d.BookmarkKey)
			verdict, moved := Classify(e.resolveTracking(ctx, link), path, nil)

			if verdict == VerdictMoved {
				edits = append(edits, document.RenameBookmark(d.BookmarkKey, moved))
				changes = append(changes, trackingChange{anchor: link, target: moved})
				outcomes = append(outcomes, outcome{journal.CategoryBookmark, journal.OutcomeMoved, d.BookmarkKey, path, moved})
				continue
			}

			edits = append(edits, document.DeleteBookmark(d.BookmarkKey))
			changes = append(changes, trackingChange{remove: link})
			outcomes = append(outcomes, outcome{journal.CategoryBookmark, journal.OutcomeDeleted, d.BookmarkKey, path, ""})
		}

		e.commit(ctx, edits, changes, outcomes)
		e.Bookmarks.Remove(dir, matches...)
		e.refresh()
	})
}

// YankRenamed rewrites every yank entry on oldPath to newPath.
func (e *Engine) YankRenamed(ctx context.Context, oldPath, newPath string) {
	dir := filepath.Dir(oldPath)
	matches := e.Yank.Match(dir, filepath.Base(oldPath))
	if len(matches) == 0 {
		return
	}

	var (
		edits    []document.Edit
		changes  []trackingChange
		outcomes []outcome
	)
	seen := make(map[string]bool)
	for _, d := range matches {
		k := fsutil.Lower(d.FullPath)
		if seen[k] {
			continue
		}
		seen[k] = true

		edits = append(edits, document.RenameYank(d.FullPath, newPath))
		changes = append(changes, trackingChange{
			remove: e.yankLink(d.FullPath),
			anchor: e.yankLink(newPath),
			target: newPath,
		})
		outcomes = append(outcomes, outcome{journal.CategoryYank, journal.OutcomeRenamed, d.FullPath, d.FullPath, newPath})
	}

	if e.commit(ctx, edits, changes, outcomes) {
		e.Yank.Remove(dir, matches...)
		e.refresh()
	}
}

// YankDeleted schedules classification of a vanished yank target. Entries
// whose tracking link resolves elsewhere are rewritten, the rest are
// dropped and emptied lists pruned.
func (e *Engine) YankDeleted(ctx context.Context, path string) {
	dir := filepath.Dir(path)
	matches := e.Yank.Match(dir, filepath.Base(path))
	if len(matches) == 0 {
		return
	}

	e.log.Debug("yank target deleted", "path", path, "entries", len(matches))

	e.sched.After(ctx, e.opts.EntrySettle, "yank-delete", func(ctx context.Context) {
		var (
			edits    []document.Edit
			changes  []trackingChange
			outcomes []outcome
		)
		seen := make(map[string]bool)
		for _, d := range matches {
			k := fsutil.Lower(d.FullPath)
			if seen[k] {
				continue
			}
			seen[k] = true

			link := e.yankLink(d.FullPath)
			verdict, moved := Classify(e.resolveTracking(ctx, link), path, nil)

			if verdict == VerdictMoved {
				edits = append(edits, document.RenameYank(d.FullPath, moved))
				changes = append(changes, trackingChange{remove: link, anchor: e.yankLink(moved), target: moved})
				outcomes = append(outcomes, outcome{journal.CategoryYank, journal.OutcomeMoved, d.FullPath, d.FullPath, moved})
				continue
			}

			edits = append(edits, document.DeleteYank(d.FullPath))
			changes = append(changes, trackingChange{remove: link})
			outcomes = append(outcomes, outcome{journal.CategoryYank, journal.OutcomeDeleted, d.FullPath, d.FullPath, ""})
		}

		e.commit(ctx, edits, changes, outcomes)
		e.Yank.Remove(dir, matches...)
		e.refresh()
	})
}

func (e *Engine) bookmarkLink(key string) string {
	if e.tracking == nil {
		return ""
	}
	return e.tracking.BookmarkPath(key)
}

func (e *Engine) yankLink(path string) string {
	if e.tracking == nil {
		return ""
	}
	return e.tracking.YankPath(path)
}

// resolveTracking resolves a tracking link. Without a tracking directory
// every target is reported unavailable, which classifies as deleted.
func (e *Engine) resolveTracking(ctx context.Context, link string) shortcut.Resolution {
	if e.tracking == nil || link == "" || !fsutil.Exists(link) {
		return shortcut.Resolution{Status: shortcut.StatusUnavailable}
	}
	return e.tracking.Resolve(ctx, link)
}
