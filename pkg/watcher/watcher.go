package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/logger"
)

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	// Watched directories, keyed by fsutil.DirKey.
	dirs   map[string]string
	dirsMu sync.RWMutex

	// Rename pairing state.
	pending []*pendingRename
	paired  map[string]time.Time
	pairMu  sync.Mutex

	// Debouncing state.
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// Circuit breaker state.
	failureCount int
	lastFailure  time.Time
}

// pendingRename is a rename waiting for its create.
type pendingRename struct {
	path  string
	isDir bool
	timer *time.Timer
}

// New creates a new file system watcher.
//
// Parameters:
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Watcher
//   - Error if watcher cannot be created
func New(cfg Config, log logger.Logger) (Watcher, error) {
	// Set defaults.
	if cfg.RenamePairWindow == 0 {
		cfg.RenamePairWindow = 100 * time.Millisecond
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.Name == "" {
		cfg.Name = "watcher"
	}
	if log == nil {
		log = logger.Noop()
	}

	// Create fsnotify watcher.
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:            fsw,
		logger:         log.With("watcher", cfg.Name),
		config:         cfg,
		events:         make(chan Event, 256),
		errors:         make(chan error, 10),
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
		dirs:           make(map[string]string),
		paired:         make(map[string]time.Time),
		debounceTimers: make(map[string]*time.Timer),
	}

	w.logger.Debug("file watcher created",
		"debounce_interval", cfg.DebounceInterval,
		"rename_pair_window", cfg.RenamePairWindow,
		"recursive", cfg.Recursive)

	return w, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context, paths []string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	added := 0
	for _, path := range paths {
		expanded := fsutil.ExpandHome(path)

		if _, err := os.Stat(expanded); err != nil {
			if os.IsNotExist(err) {
				w.logger.Warn("watch path does not exist, skipping",
					"path", expanded)
				continue
			}
			return fmt.Errorf("failed to stat path %s: %w", expanded, err)
		}

		if err := w.Add(expanded); err != nil {
			return fmt.Errorf("failed to add path %s: %w", expanded, err)
		}
		added++
	}

	if len(paths) > 0 && added == 0 {
		return ErrNoWatchPaths
	}

	w.logger.Info("watcher started",
		"paths", paths,
		"path_count", added)

	// Start event processing loop.
	go w.processEvents(ctx)

	return nil
}

// Add implements Watcher.Add.
func (w *watcher) Add(path string) error {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return ErrWatcherClosed
	}

	path = fsutil.Normalize(path)
	if path == "" {
		return ErrNotDirectory
	}
	if w.Watched(path) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}

	if w.config.Recursive {
		return w.addPathRecursive(path, false)
	}
	return w.addDir(path)
}

// Watched implements Watcher.Watched.
func (w *watcher) Watched(path string) bool {
	w.dirsMu.RLock()
	defer w.dirsMu.RUnlock()
	_, ok := w.dirs[fsutil.DirKey(path)]
	return ok
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	// Signal stop.
	close(w.stopChan)
	w.running = false

	w.logger.Info("watcher stopped")
	return nil
}

// Events implements Watcher.Events.
func (w *watcher) Events() <-chan Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *watcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	// Release senders blocked on a full channel before taking the lock.
	w.doneOnce.Do(func() { close(w.done) })

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	// Stop if running.
	if w.running {
		close(w.stopChan)
		w.running = false
	}

	// Cancel pending renames and debounce timers.
	w.pairMu.Lock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = nil
	w.pairMu.Unlock()

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = nil
	w.debounceMu.Unlock()

	// Close channels.
	close(w.events)
	close(w.errors)

	// Close fsnotify watcher.
	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

// processEvents handles events from fsnotify.
func (w *watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Debug("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Debug("fsnotify events channel closed")
				return
			}

			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Debug("fsnotify errors channel closed")
				return
			}

			w.handleError(err)
		}
	}
}

// handleEvent converts a single fsnotify event, pairing renames.
func (w *watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	switch {
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		w.holdRename(path)
	case event.Op&fsnotify.Create == fsnotify.Create:
		if old := w.takeRename(path); old != nil {
			w.renamed(old, path)
		} else {
			w.created(path)
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		w.deliver(Event{Path: path, Op: OpWrite})
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		w.removed(path)
	case event.Op&fsnotify.Chmod == fsnotify.Chmod:
		w.deliver(Event{Path: path, Op: OpChmod})
	default:
		w.logger.Debug("unknown fsnotify operation",
			"op", event.Op,
			"path", event.Name)
	}
}

// holdRename parks a rename until its create arrives or the window closes.
func (w *watcher) holdRename(path string) {
	w.pairMu.Lock()
	defer w.pairMu.Unlock()

	// A watched directory reports its own move a second time.
	if _, dup := w.paired[path]; dup {
		return
	}
	for _, p := range w.pending {
		if p.path == path {
			return
		}
	}

	p := &pendingRename{path: path, isDir: w.Watched(path)}
	p.timer = time.AfterFunc(w.config.RenamePairWindow, func() {
		if w.dropRename(p) {
			w.removed(p.path)
		}
	})
	w.pending = append(w.pending, p)
}

// dropRename removes an expired rename, reporting whether it was still pending.
func (w *watcher) dropRename(p *pendingRename) bool {
	w.pairMu.Lock()
	defer w.pairMu.Unlock()

	for i, q := range w.pending {
		if q == p {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			return true
		}
	}
	return false
}

// takeRename finds the pending rename that newPath completes. A rename in
// the same directory matches any name; a move into another watched
// directory must keep its base name.
func (w *watcher) takeRename(newPath string) *pendingRename {
	w.pairMu.Lock()
	defer w.pairMu.Unlock()

	now := time.Now()
	for path, at := range w.paired {
		if now.Sub(at) > w.config.RenamePairWindow {
			delete(w.paired, path)
		}
	}

	dir, name := filepath.Dir(newPath), filepath.Base(newPath)

	match := -1
	for i, p := range w.pending {
		if fsutil.SamePath(filepath.Dir(p.path), dir) {
			match = i
			break
		}
	}
	if match < 0 {
		for i, p := range w.pending {
			if fsutil.EqualFold(filepath.Base(p.path), name) {
				match = i
				break
			}
		}
	}
	if match < 0 {
		return nil
	}

	p := w.pending[match]
	p.timer.Stop()
	w.pending = append(w.pending[:match], w.pending[match+1:]...)
	w.paired[p.path] = now
	return p
}

func (w *watcher) renamed(old *pendingRename, newPath string) {
	isDir := isDirectory(newPath)
	if old.isDir {
		w.unwatch(old.path)
	}
	if isDir && w.config.Recursive {
		if err := w.addPathRecursive(newPath, true); err != nil {
			w.logger.Warn("failed to watch renamed directory", "path", newPath, "error", err)
		}
	}

	w.deliver(Event{Path: old.path, NewPath: newPath, Op: OpRename, IsDir: isDir})
}

func (w *watcher) created(path string) {
	isDir := isDirectory(path)
	if isDir && w.config.Recursive {
		if err := w.addPathRecursive(path, true); err != nil {
			w.logger.Warn("failed to watch new directory", "path", path, "error", err)
		}
	}

	w.deliver(Event{Path: path, Op: OpCreate, IsDir: isDir})
}

func (w *watcher) removed(path string) {
	isDir := w.Watched(path)
	if isDir {
		w.unwatch(path)
	}

	w.deliver(Event{Path: path, Op: OpRemove, IsDir: isDir})
}

// deliver applies the filter and debouncing, then emits the event.
func (w *watcher) deliver(event Event) {
	event.Timestamp = time.Now()

	if event.Op == OpRename {
		okOld, okNew := w.accept(event.Path, event.IsDir), w.accept(event.NewPath, event.IsDir)
		switch {
		case okOld && okNew:
		case okOld:
			event = Event{Path: event.Path, Op: OpRemove, IsDir: event.IsDir, Timestamp: event.Timestamp}
		case okNew:
			event = Event{Path: event.NewPath, Op: OpCreate, IsDir: event.IsDir, Timestamp: event.Timestamp}
		default:
			return
		}
	} else if !w.accept(event.Path, event.IsDir) {
		return
	}

	if w.config.DebounceInterval > 0 {
		w.debounceEvent(event)
		return
	}
	w.emit(event)
}

func (w *watcher) accept(path string, isDir bool) bool {
	if isDir && w.config.Recursive {
		return true
	}
	if w.config.Filter == nil {
		return true
	}
	return w.config.Filter(path)
}

// emit sends an event unless the watcher is closed.
func (w *watcher) emit(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}

	select {
	case w.events <- event:
	case <-w.done:
	}
}

// debounceEvent implements event debouncing.
func (w *watcher) debounceEvent(event Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimers == nil {
		return
	}

	// Cancel existing timer for this path.
	if timer, exists := w.debounceTimers[event.Path]; exists {
		timer.Stop()
	}

	// Create new debounce timer.
	w.debounceTimers[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.emit(event)

		// Clean up timer.
		w.debounceMu.Lock()
		if w.debounceTimers != nil {
			delete(w.debounceTimers, event.Path)
		}
		w.debounceMu.Unlock()
	})
}

// handleError processes fsnotify errors with circuit breaker pattern.
func (w *watcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.failureCount++
	w.lastFailure = time.Now()

	w.logger.Error("fsnotify error",
		"error", err,
		"failure_count", w.failureCount)

	// Check circuit breaker.
	if w.failureCount >= w.config.CircuitBreakerThreshold {
		w.logger.Error("circuit breaker opened",
			"threshold", w.config.CircuitBreakerThreshold)

		// Send circuit breaker error.
		select {
		case w.errors <- ErrBreakerOpen:
		default:
			w.logger.Warn("error channel full, dropping error")
		}

		return
	}

	// Send error to channel.
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("error channel full, dropping error")
	}
}

func (w *watcher) addDir(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("failed to add path: %w", err)
	}

	w.dirsMu.Lock()
	w.dirs[fsutil.DirKey(path)] = path
	w.dirsMu.Unlock()

	w.logger.Debug("added watch path", "path", path)
	return nil
}

// unwatch forgets a directory and, in recursive mode, everything below it.
// The kernel drops watches of removed directories on its own, so errors
// from fsnotify are ignored.
func (w *watcher) unwatch(path string) {
	key := fsutil.DirKey(path)
	prefix := key + string(filepath.Separator)

	w.dirsMu.Lock()
	var gone []string
	for k, dir := range w.dirs {
		if k == key || (w.config.Recursive && strings.HasPrefix(k, prefix)) {
			gone = append(gone, dir)
			delete(w.dirs, k)
		}
	}
	w.dirsMu.Unlock()

	for _, dir := range gone {
		_ = w.fsw.Remove(dir) //nolint:errcheck
	}
}

// addPathRecursive adds a path and all subdirectories to the watcher. With
// announce set, files found below path are reported as created.
func (w *watcher) addPathRecursive(path string, announce bool) error {
	// Add the path itself.
	if err := w.addDir(path); err != nil {
		return err
	}

	// Walk subdirectories.
	return filepath.Walk(path, func(subPath string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("error walking path",
				"path", subPath,
				"error", err)
			return nil // Skip but continue walking.
		}

		// Skip the root path (already added).
		if subPath == path {
			return nil
		}

		if !info.IsDir() {
			if announce {
				w.deliver(Event{Path: subPath, Op: OpCreate})
			}
			return nil
		}

		// Add subdirectory.
		if addErr := w.addDir(subPath); addErr != nil {
			w.logger.Warn("failed to add subdirectory",
				"path", subPath,
				"error", addErr)
			return nil // Skip but continue walking.
		}

		return nil
	})
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
