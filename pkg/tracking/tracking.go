// Package tracking maintains one recovery shortcut per bookmark and yank
// entry.
//
// Tracking links live in a private directory. A bookmark's link is named
// after its key and a yank entry's after the MD5 of its normalized,
// lowercased path.
// When the daemon was not running while a target moved, resolving the
// tracking link on the next load reveals the new location.
package tracking

import (
	"context"
	"crypto/md5" // #nosec G501: naming only
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xmhha/lf-watcher/pkg/document"
	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/logger"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
)

// Extension of tracking link files.
const Extension = ".lnk"

// yankPrefix starts every yank tracking link name.
const yankPrefix = "yank_"

// Links is the shortcut capability the manager needs.
type Links interface {
	CreateOrUpdate(linkPath, target string) (bool, error)
	Resolve(ctx context.Context, linkPath string) shortcut.Resolution
	Remove(linkPath string) error
}

// Correction is an offline move found while healing.
type Correction struct {
	Section document.Section
	Key     string
	OldPath string
	NewPath string

	// Retire is the tracking link the correction replaces, if any. It is
	// left in place until the correction has been written back.
	Retire string
}

// Edit returns the document edit that applies the correction.
func (c Correction) Edit() document.Edit {
	if c.Section == document.SectionYank {
		return document.RenameYank(c.OldPath, c.NewPath)
	}
	return document.RenameBookmark(c.Key, c.NewPath)
}

// Report summarizes an Ensure pass.
type Report struct {
	Corrections []Correction
	Anchored    int
	Failed      int
}

// Manager creates, heals and prunes tracking links.
type Manager struct {
	dir   string
	links Links
	log   logger.Logger
}

// New creates a manager for the tracking directory dir.
func New(dir string, links Links, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Noop()
	}
	return &Manager{dir: dir, links: links, log: log.With("component", "tracking")}
}

// Dir returns the tracking directory.
func (m *Manager) Dir() string {
	return m.dir
}

// BookmarkPath returns the tracking link path for a bookmark key.
func (m *Manager) BookmarkPath(key string) string {
	return filepath.Join(m.dir, bookmarkName(key)+Extension)
}

// YankPath returns the tracking link path for a yank entry. Paths that
// differ only in case or separators share one link.
func (m *Manager) YankPath(target string) string {
	sum := md5.Sum([]byte(yankKey(target))) // #nosec G401
	return filepath.Join(m.dir, yankPrefix+hex.EncodeToString(sum[:])+Extension)
}

// yankKey is the identity of a yank entry path.
func yankKey(path string) string {
	return fsutil.Lower(fsutil.Normalize(path))
}

// bookmarkName returns the link file name for key. Keys that had to be
// sanitized get a short hash of the original so "a/b" and "a_b" differ.
func bookmarkName(key string) string {
	name := sanitize(key)
	if name == key {
		return name
	}
	sum := md5.Sum([]byte(key)) // #nosec G401
	return name + "_" + hex.EncodeToString(sum[:4])
}

// sanitize replaces characters that cannot appear in a file name.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, key)
}

// Anchor points the tracking link at target.
func (m *Manager) Anchor(linkPath, target string) error {
	if target == "" {
		return nil
	}
	if _, err := m.links.CreateOrUpdate(linkPath, target); err != nil {
		return fmt.Errorf("failed to anchor tracking link: %w", err)
	}
	return nil
}

// Remove deletes a tracking link.
func (m *Manager) Remove(linkPath string) error {
	return m.links.Remove(linkPath)
}

// Resolve resolves a tracking link.
func (m *Manager) Resolve(ctx context.Context, linkPath string) shortcut.Resolution {
	return m.links.Resolve(ctx, linkPath)
}

// Heal resolves an existing tracking link and reports the target's new
// location when it moved away from recorded.
func (m *Manager) Heal(ctx context.Context, linkPath, recorded string) (string, bool) {
	if !fsutil.Exists(linkPath) {
		return "", false
	}

	res := m.links.Resolve(ctx, linkPath)
	if res.Status != shortcut.StatusResolved {
		return "", false
	}
	if !fsutil.Exists(res.Path) || fsutil.SamePath(res.Path, recorded) {
		return "", false
	}
	return res.Path, true
}

// Ensure heals and anchors the tracking link of every bookmark and yank
// entry in doc. Corrections are returned for the caller to write back;
// doc itself is not modified.
func (m *Manager) Ensure(ctx context.Context, doc *document.Document) Report {
	var rep Report

	for _, bm := range doc.Bookmarks {
		if bm.Path == "" {
			continue
		}
		link := m.BookmarkPath(bm.Key)
		target := bm.Path

		if moved, ok := m.Heal(ctx, link, target); ok {
			m.log.Info("bookmark moved while offline", "key", bm.Key, "from", target, "to", moved)
			rep.Corrections = append(rep.Corrections, Correction{
				Section: document.SectionBookmarks, Key: bm.Key, OldPath: target, NewPath: moved,
			})
			target = moved
		}

		if err := m.Anchor(link, target); err != nil {
			m.log.Warn("tracking link not anchored", "key", bm.Key, "error", err)
			rep.Failed++
			continue
		}
		rep.Anchored++
	}

	seen := make(map[string]bool)
	for _, list := range doc.YankHistory {
		for _, path := range list {
			k := yankKey(path)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true

			link := m.YankPath(path)
			target := path

			if moved, ok := m.Heal(ctx, link, target); ok {
				m.log.Info("yank entry moved while offline", "from", target, "to", moved)
				next := m.YankPath(moved)
				c := Correction{Section: document.SectionYank, OldPath: target, NewPath: moved}
				if next != link {
					c.Retire = link
				}
				rep.Corrections = append(rep.Corrections, c)
				target = moved
				link = next
			}

			if err := m.Anchor(link, target); err != nil {
				m.log.Warn("tracking link not anchored", "path", path, "error", err)
				rep.Failed++
				continue
			}
			rep.Anchored++
		}
	}

	return rep
}

// Retire removes the links replaced by corrections that have been written
// back. Until then the old links keep the previous entries recoverable.
func (m *Manager) Retire(cs []Correction) {
	for _, c := range cs {
		if c.Retire == "" {
			continue
		}
		if err := m.links.Remove(c.Retire); err != nil {
			m.log.Warn("tracking link not retired", "link", c.Retire, "error", err)
		}
	}
}

// Expected returns the tracking link names doc accounts for.
func (m *Manager) Expected(doc *document.Document) map[string]bool {
	names := make(map[string]bool)
	for _, bm := range doc.Bookmarks {
		names[filepath.Base(m.BookmarkPath(bm.Key))] = true
	}
	for _, list := range doc.YankHistory {
		for _, path := range list {
			names[filepath.Base(m.YankPath(path))] = true
		}
	}
	return names
}

// Prune removes tracking links that no entry of doc accounts for and
// returns their paths.
func (m *Manager) Prune(doc *document.Document) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list tracking directory: %w", err)
	}

	keep := m.Expected(doc)

	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), Extension) || keep[name] {
			continue
		}

		path := filepath.Join(m.dir, name)
		if err := m.links.Remove(path); err != nil {
			m.log.Warn("orphan tracking link not removed", "path", path, "error", err)
			continue
		}
		removed = append(removed, path)
	}

	if len(removed) > 0 {
		m.log.Info("orphan tracking links pruned", "count", len(removed))
	}
	return removed, nil
}
