// Package daemon assembles the reconciliation components from configuration
// and drives them from file system events.
//
// Five watchers feed the engine: one per reference class for the
// directories holding targets, a recursive one over the workspace tree for
// link files, and a debounced one for the shared document. Each watcher is
// drained by its own goroutine; a panicking handler is logged and the loop
// carries on.
//
// Example usage:
//
//	d, err := daemon.New(cfg, j, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := d.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/lf-watcher/pkg/config"
	"github.com/0xmhha/lf-watcher/pkg/display"
	"github.com/0xmhha/lf-watcher/pkg/document"
	"github.com/0xmhha/lf-watcher/pkg/journal"
	"github.com/0xmhha/lf-watcher/pkg/logger"
	"github.com/0xmhha/lf-watcher/pkg/reconcile"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
	"github.com/0xmhha/lf-watcher/pkg/tracking"
	"github.com/0xmhha/lf-watcher/pkg/watcher"
)

// retentionInterval is how often old journal entries are pruned.
const retentionInterval = time.Hour

// daemon implements the Daemon interface.
type daemon struct {
	config  *config.Config
	logger  logger.Logger
	journal journal.Journal

	docs   *document.Store
	links  *shortcut.Store
	engine *reconcile.Engine

	linkW      watcher.Watcher
	bookmarkW  watcher.Watcher
	yankW      watcher.Watcher
	workspaceW watcher.Watcher
	documentW  watcher.Watcher

	mu        sync.RWMutex
	running   bool
	closed    bool
	workspace string
}

// New creates a daemon from cfg.
//
// Parameters:
//   - cfg: Validated configuration
//   - j: Journal for outcomes, or nil
//   - log: Logger instance
//
// Returns:
//   - Configured Daemon
//   - Error if the configuration is invalid or a watcher cannot be created
func New(cfg *config.Config, j journal.Journal, log logger.Logger) (Daemon, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if log == nil {
		log = logger.Noop()
	}

	d := &daemon{
		config:  cfg,
		logger:  log,
		journal: j,
	}

	d.links = shortcut.NewStore(ShortcutOptions(cfg), log.With("component", "shortcut"))

	d.docs = document.NewStore(cfg.Document.Path, document.Options{
		Retries:         cfg.Document.Retries,
		ReadRetryDelay:  cfg.Document.ReadRetryDelay,
		WriteRetryDelay: cfg.Document.WriteRetryDelay,
		Settle:          cfg.Document.WriteSettle,
	}, log.With("component", "document"))

	if err := d.newWatchers(); err != nil {
		_ = d.closeWatchers()
		return nil, err
	}

	d.engine = reconcile.New(reconcile.Options{
		LinkSettle:       cfg.Reconcile.LinkSettleDelay,
		EntrySettle:      cfg.Reconcile.EntrySettleDelay,
		RenameRetries:    cfg.Shortcut.RenameRetries,
		RenameRetryDelay: cfg.Shortcut.RenameRetryDelay,
		LinkExtension:    cfg.Workspace.LinkExtension,
	},
		d.links,
		d.docs,
		tracking.New(cfg.Document.TrackingDir, d.links, log),
		j,
		reconcile.Watchers{Links: d.linkW, Bookmarks: d.bookmarkW, Yank: d.yankW},
		log,
	)

	log.Info("daemon created",
		"document", cfg.Document.Path,
		"tracking_dir", cfg.Document.TrackingDir)

	return d, nil
}

// ShortcutOptions returns the link store options configured in cfg.
func ShortcutOptions(cfg *config.Config) shortcut.Options {
	return shortcut.Options{
		UpdateRetries:    cfg.Shortcut.UpdateRetries,
		UpdateRetryDelay: cfg.Shortcut.UpdateRetryDelay,
		ResolveTimeout:   cfg.Shortcut.ResolveTimeout,
		SearchDepth:      cfg.Shortcut.SearchDepth,
		SearchBudget:     cfg.Shortcut.SearchBudget,
		SearchRoots:      cfg.Shortcut.SearchRoots,
	}
}

// newWatchers creates the five watchers.
func (d *daemon) newWatchers() error {
	pair := d.config.Reconcile.RenamePairWindow
	var err error

	target := func(name string) (watcher.Watcher, error) {
		return watcher.New(watcher.Config{Name: name, RenamePairWindow: pair}, d.logger)
	}
	if d.linkW, err = target("links"); err != nil {
		return err
	}
	if d.bookmarkW, err = target("bookmarks"); err != nil {
		return err
	}
	if d.yankW, err = target("yank"); err != nil {
		return err
	}

	ext := d.config.Workspace.LinkExtension
	d.workspaceW, err = watcher.New(watcher.Config{
		Name:             "workspace",
		RenamePairWindow: pair,
		Recursive:        true,
		Filter: func(path string) bool {
			return strings.EqualFold(filepath.Ext(path), ext)
		},
	}, d.logger)
	if err != nil {
		return err
	}

	docName := filepath.Base(d.config.Document.Path)
	d.documentW, err = watcher.New(watcher.Config{
		Name:             "document",
		RenamePairWindow: pair,
		DebounceInterval: d.config.Document.ReloadDebounce,
		Filter: func(path string) bool {
			return strings.EqualFold(filepath.Base(path), docName)
		},
	}, d.logger)
	return err
}

// Engine implements Daemon.Engine.
func (d *daemon) Engine() *reconcile.Engine {
	return d.engine
}

// Workspace implements Daemon.Workspace.
func (d *daemon) Workspace() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.workspace
}

// Run implements Daemon.Run.
func (d *daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDaemonClosed
	}
	if d.running {
		d.mu.Unlock()
		return ErrDaemonRunning
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	for _, w := range []watcher.Watcher{d.linkW, d.bookmarkW, d.yankW, d.workspaceW} {
		if err := w.Start(ctx, nil); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	if _, err := d.engine.Sync(ctx); err != nil {
		// The document may appear later; the document watcher picks it up.
		d.logger.Warn("document not loaded", "path", d.config.Document.Path, "error", err)
	}

	if err := d.syncWorkspace(ctx); err != nil {
		d.logger.Warn("workspace not scanned", "error", err)
	}

	docDir := filepath.Dir(d.config.Document.Path)
	if err := os.MkdirAll(docDir, 0750); err != nil {
		d.logger.Warn("document directory not created", "path", docDir, "error", err)
	}
	if err := d.documentW.Start(ctx, []string{docDir}); err != nil {
		return fmt.Errorf("failed to watch document: %w", err)
	}

	d.pruneJournal()

	d.logger.Info("daemon started",
		"workspace", d.Workspace(),
		"links", d.engine.Links.Len(),
		"bookmarks", d.engine.Bookmarks.Len(),
		"yank_entries", d.engine.Yank.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.processEvents(gctx, "links", d.linkW, d.engine.HandleLinkTarget) })
	g.Go(func() error { return d.processEvents(gctx, "bookmarks", d.bookmarkW, d.engine.HandleBookmark) })
	g.Go(func() error { return d.processEvents(gctx, "yank", d.yankW, d.engine.HandleYank) })
	g.Go(func() error { return d.processEvents(gctx, "workspace", d.workspaceW, d.engine.HandleWorkspace) })
	g.Go(func() error { return d.processEvents(gctx, "document", d.documentW, d.documentChanged) })
	g.Go(func() error { return d.retention(gctx) })

	err := g.Wait()
	d.engine.Wait()

	d.logger.Info("daemon stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Scan implements Daemon.Scan.
func (d *daemon) Scan(ctx context.Context) (display.Summary, error) {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return display.Summary{}, ErrDaemonClosed
	}

	rep, err := d.engine.Sync(ctx)
	if err != nil {
		return display.Summary{}, err
	}

	if err := d.syncWorkspace(ctx); err != nil {
		d.logger.Warn("workspace not scanned", "error", err)
	}

	return d.summary(rep), nil
}

// summary converts a sync report for display.
func (d *daemon) summary(rep reconcile.Report) display.Summary {
	s := display.Summary{
		Document:    d.config.Document.Path,
		Workspace:   d.Workspace(),
		Links:       d.engine.Links.Len(),
		Bookmarks:   rep.Bookmarks,
		YankEntries: rep.YankEntries,
		Anchored:    rep.Anchored,
		Failed:      rep.Failed,
		Pruned:      rep.Pruned,
	}
	for _, c := range rep.Healed {
		s.Healed = append(s.Healed, display.Heal{
			Section: c.Section.String(),
			Key:     c.Key,
			OldPath: c.OldPath,
			NewPath: c.NewPath,
		})
	}
	return s
}

// processEvents drains one watcher until ctx ends or the watcher closes.
func (d *daemon) processEvents(ctx context.Context, name string, w watcher.Watcher, handle func(context.Context, watcher.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events():
			if !ok {
				d.logger.Info("watcher events channel closed", "watcher", name)
				return nil
			}

			d.dispatch(ctx, name, event, handle)

		case err, ok := <-w.Errors():
			if !ok {
				d.logger.Info("watcher errors channel closed", "watcher", name)
				return nil
			}

			d.logger.Warn("watcher error", "watcher", name, "error", err)
		}
	}
}

// dispatch runs one handler, logging instead of propagating a panic.
func (d *daemon) dispatch(ctx context.Context, name string, event watcher.Event, handle func(context.Context, watcher.Event)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"watcher", name,
				"path", event.Path,
				"op", event.Op,
				"panic", r)
		}
	}()

	d.logger.Debug("file change detected",
		"watcher", name,
		"op", event.Op,
		"path", event.Path,
		"new_path", event.NewPath)

	handle(ctx, event)
}

// documentChanged reloads the document after an external edit.
func (d *daemon) documentChanged(ctx context.Context, _ watcher.Event) {
	_, ran, err := d.engine.Reload(ctx)
	if err != nil {
		d.logger.Warn("document not reloaded", "error", err)
		return
	}
	if !ran {
		return
	}

	if err := d.syncWorkspace(ctx); err != nil {
		d.logger.Warn("workspace not scanned", "error", err)
	}
}

// retention prunes the journal periodically.
func (d *daemon) retention(ctx context.Context) error {
	if d.journal == nil {
		return nil
	}

	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.pruneJournal()
		}
	}
}

func (d *daemon) pruneJournal() {
	if d.journal == nil {
		return
	}

	n, err := d.journal.Prune(time.Now().Add(-d.config.Storage.Retention))
	if err != nil {
		d.logger.Warn("journal not pruned", "error", err)
		return
	}
	if n > 0 {
		d.logger.Info("journal pruned", "entries", n)
	}
}

// Close implements Daemon.Close.
func (d *daemon) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := d.closeWatchers()
	d.engine.Wait()

	d.logger.Info("daemon closed")
	return err
}

func (d *daemon) closeWatchers() error {
	var errs []error
	for _, w := range []watcher.Watcher{d.linkW, d.bookmarkW, d.yankW, d.workspaceW, d.documentW} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
