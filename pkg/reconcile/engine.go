package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/0xmhha/lf-watcher/pkg/discovery"
	"github.com/0xmhha/lf-watcher/pkg/document"
	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/journal"
	"github.com/0xmhha/lf-watcher/pkg/logger"
	"github.com/0xmhha/lf-watcher/pkg/registry"
	"github.com/0xmhha/lf-watcher/pkg/tracking"
)

// Engine applies target renames and deletes to the three registries and
// their backing stores.
//
// Thread-safety: handlers may run concurrently. Document edits are
// serialized by the document store; registry state is guarded by the
// registries themselves.
type Engine struct {
	opts     Options
	links    Links
	docs     Documents
	tracking *tracking.Manager
	journal  journal.Journal
	log      logger.Logger
	sched    scheduler

	// Links holds workspace shortcuts keyed by link path.
	Links *registry.Registry[registry.Link]

	// Bookmarks holds bookmark entries keyed by bookmark key.
	Bookmarks *registry.Registry[registry.Bookmark]

	// Yank holds yank history entries keyed by position.
	Yank *registry.Registry[registry.Yank]
}

// New creates an engine. j may be nil to disable the journal. Zero option
// values fall back to DefaultOptions.
func New(opts Options, links Links, docs Documents, track *tracking.Manager, j journal.Journal, w Watchers, log logger.Logger) *Engine {
	def := DefaultOptions()
	if opts.LinkSettle <= 0 {
		opts.LinkSettle = def.LinkSettle
	}
	if opts.EntrySettle <= 0 {
		opts.EntrySettle = def.EntrySettle
	}
	if opts.RenameRetries <= 0 {
		opts.RenameRetries = def.RenameRetries
	}
	if opts.RenameRetryDelay <= 0 {
		opts.RenameRetryDelay = def.RenameRetryDelay
	}
	if opts.LinkExtension == "" {
		opts.LinkExtension = def.LinkExtension
	}
	if log == nil {
		log = logger.Noop()
	}
	log = log.With("component", "reconcile")

	return &Engine{
		opts:      opts,
		links:     links,
		docs:      docs,
		tracking:  track,
		journal:   j,
		log:       log,
		sched:     scheduler{log: log},
		Links:     registry.New[registry.Link]("links", w.Links, log),
		Bookmarks: registry.New[registry.Bookmark]("bookmarks", w.Bookmarks, log),
		Yank:      registry.New[registry.Yank]("yank", w.Yank, log),
	}
}

// Wait blocks until all pending delete classifications have run.
func (e *Engine) Wait() {
	e.sched.Wait()
}

// Sync loads the document, heals offline moves through the tracking links,
// republishes the bookmark and yank registries and prunes orphan tracking
// links. A missing or empty document leaves everything untouched.
func (e *Engine) Sync(ctx context.Context) (Report, error) {
	if e.docs == nil {
		return Report{}, ErrNoDocument
	}

	doc, err := e.docs.Load(ctx)
	if errors.Is(err, document.ErrDocumentEmpty) {
		e.log.Info("document missing or empty, nothing to reconcile")
		return Report{}, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("failed to load document: %w", err)
	}
	return e.sync(ctx, doc), nil
}

// Reload re-reads the document after an external change and syncs when
// its content differs from what was last seen. It reports whether a sync
// ran.
func (e *Engine) Reload(ctx context.Context) (Report, bool, error) {
	if e.docs == nil {
		return Report{}, false, ErrNoDocument
	}

	doc, changed, err := e.docs.Reload(ctx)
	if errors.Is(err, document.ErrDocumentEmpty) {
		// Usually the file manager between truncating and writing.
		e.log.Debug("document missing or empty, reload skipped")
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, fmt.Errorf("failed to reload document: %w", err)
	}
	if !changed {
		return Report{}, false, nil
	}
	return e.sync(ctx, doc), true, nil
}

func (e *Engine) sync(ctx context.Context, doc *document.Document) Report {
	var rep Report
	written := true

	if e.tracking != nil {
		tr := e.tracking.Ensure(ctx, doc)
		rep.Anchored, rep.Failed = tr.Anchored, tr.Failed

		if len(tr.Corrections) > 0 {
			edits := make([]document.Edit, 0, len(tr.Corrections))
			for _, c := range tr.Corrections {
				edits = append(edits, c.Edit())
			}
			applied, err := e.docs.Mutate(ctx, edits...)
			if err != nil {
				e.log.Warn("offline moves not written back", "count", len(edits), "error", err)
				written = false
			} else {
				for i, ok := range applied {
					if ok {
						rep.Healed = append(rep.Healed, tr.Corrections[i])
					}
				}
				// Old links are retired only once their entries point elsewhere.
				e.tracking.Retire(rep.Healed)
				doc = e.docs.Current()
				for _, c := range rep.Healed {
					e.record(categoryOf(c.Section), journal.OutcomeHealed, correctionKey(c), c.OldPath, c.NewPath)
				}
			}
		}
	}

	rep.Bookmarks, rep.YankEntries = e.ApplyDocument(doc)

	// Links anchored for unwritten corrections are not in doc yet.
	if e.tracking != nil && written {
		pruned, err := e.tracking.Prune(doc)
		if err != nil {
			e.log.Warn("tracking links not pruned", "error", err)
		}
		rep.Pruned = pruned
	}

	e.log.Info("document synced",
		"bookmarks", rep.Bookmarks,
		"yank_entries", rep.YankEntries,
		"healed", len(rep.Healed),
		"pruned", len(rep.Pruned))

	return rep
}

// ApplyDocument rebuilds the bookmark and yank registries from doc and
// returns how many descriptors each received.
func (e *Engine) ApplyDocument(doc *document.Document) (int, int) {
	var bookmarks []registry.Entry[registry.Bookmark]
	for _, bm := range doc.Bookmarks {
		path := fsutil.Normalize(bm.Path)
		if path == "" {
			continue
		}
		bookmarks = append(bookmarks, registry.Entry[registry.Bookmark]{
			Desc:   registry.Bookmark{FolderName: filepath.Base(path), BookmarkKey: bm.Key},
			Target: path,
		})
	}

	var yank []registry.Entry[registry.Yank]
	for li, list := range doc.YankHistory {
		for fi, raw := range list {
			path := fsutil.Normalize(raw)
			if path == "" {
				continue
			}
			yank = append(yank, registry.Entry[registry.Yank]{
				Desc: registry.Yank{
					FolderName: filepath.Base(path),
					ListIndex:  li,
					FileIndex:  fi,
					FullPath:   path,
				},
				Target: path,
			})
		}
	}

	e.Bookmarks.Replace(bookmarks)
	e.Yank.Replace(yank)

	return len(bookmarks), len(yank)
}

// refresh republishes the registries from the store's cached document.
func (e *Engine) refresh() {
	e.ApplyDocument(e.docs.Current())
}

// ScanWorkspace registers every link file below root and returns how many
// links were registered. Links previously registered below root are
// replaced; links under other roots stay registered.
func (e *Engine) ScanWorkspace(root string) (int, error) {
	files, err := discovery.New(nil, e.opts.LinkExtension, e.log).DiscoverDir(root)
	if err != nil {
		return 0, fmt.Errorf("failed to scan workspace: %w", err)
	}

	e.UnregisterLinks(root)

	n := 0
	for _, f := range files {
		target, err := e.links.Target(f.Path)
		if err != nil || target == "" {
			e.log.Debug("link skipped", "path", f.Path, "error", err)
			continue
		}
		target = fsutil.Normalize(target)
		e.Links.Register(registry.Link{TargetName: filepath.Base(target), LinkPath: f.Path}, target)
		n++
	}

	e.log.Info("workspace scanned", "root", root, "links", n)
	return n, nil
}

// RegisterLink reads a workspace link and registers its target.
func (e *Engine) RegisterLink(linkPath string) error {
	if !e.isLink(linkPath) {
		return ErrNotLink
	}

	target, err := e.links.Target(linkPath)
	if err != nil {
		return err
	}
	target = fsutil.Normalize(target)

	dir := e.Links.Register(registry.Link{TargetName: filepath.Base(target), LinkPath: linkPath}, target)
	e.log.Debug("link registered", "link", linkPath, "target", target, "dir", dir)
	return nil
}

// UnregisterLinks forgets the link at path and, when path is a directory,
// every link below it. It returns how many were removed.
func (e *Engine) UnregisterLinks(path string) int {
	path = fsutil.Normalize(path)
	prefix := fsutil.Fold(path + string(filepath.Separator))

	gone := e.Links.UnregisterFunc(func(l registry.Link) bool {
		return fsutil.SamePath(l.LinkPath, path) || strings.HasPrefix(fsutil.Fold(l.LinkPath), prefix)
	})
	if len(gone) > 0 {
		e.log.Debug("links unregistered", "path", path, "count", len(gone))
	}
	return len(gone)
}

func (e *Engine) isLink(path string) bool {
	return strings.EqualFold(filepath.Ext(path), e.opts.LinkExtension)
}

// record appends an outcome to the journal, if any.
func (e *Engine) record(cat journal.Category, out journal.Outcome, key, oldPath, newPath string) {
	if e.journal == nil {
		return
	}
	err := e.journal.Record(&journal.Entry{
		Category: cat,
		Outcome:  out,
		Key:      key,
		OldPath:  oldPath,
		NewPath:  newPath,
	})
	if err != nil {
		e.log.Warn("journal entry not recorded", "key", key, "error", err)
	}
}

func categoryOf(s document.Section) journal.Category {
	if s == document.SectionYank {
		return journal.CategoryYank
	}
	return journal.CategoryBookmark
}

func correctionKey(c tracking.Correction) string {
	if c.Section == document.SectionYank {
		return c.OldPath
	}
	return c.Key
}
