package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/journal"
	"github.com/0xmhha/lf-watcher/pkg/registry"
	"github.com/0xmhha/lf-watcher/pkg/watcher"
)

// HandleLinkTarget routes an event from a workspace link target directory.
func (e *Engine) HandleLinkTarget(ctx context.Context, ev watcher.Event) {
	switch ev.Op {
	case watcher.OpRename:
		e.LinkTargetRenamed(ctx, ev.Path, ev.NewPath)
	case watcher.OpRemove:
		e.LinkTargetDeleted(ctx, ev.Path)
	}
}

// HandleWorkspace routes an event from the workspace tree.
func (e *Engine) HandleWorkspace(ctx context.Context, ev watcher.Event) {
	switch ev.Op {
	case watcher.OpCreate, watcher.OpWrite:
		if ev.IsDir {
			return
		}
		e.registerQuietly(ev.Path)

	case watcher.OpRemove:
		e.UnregisterLinks(ev.Path)

	case watcher.OpRename:
		e.UnregisterLinks(ev.Path)
		// Links inside a renamed directory arrive as creates.
		if !ev.IsDir {
			e.registerQuietly(ev.NewPath)
		}
	}
}

func (e *Engine) registerQuietly(path string) {
	if err := e.RegisterLink(path); err != nil && !errors.Is(err, ErrNotLink) {
		e.log.Debug("link not registered", "path", path, "error", err)
	}
}

// LinkTargetRenamed retargets every workspace link pointing at oldPath.
// Links named after their target are renamed to follow it.
func (e *Engine) LinkTargetRenamed(ctx context.Context, oldPath, newPath string) {
	matches := e.Links.Match(filepath.Dir(oldPath), filepath.Base(oldPath))
	if len(matches) == 0 {
		return
	}

	newName := filepath.Base(newPath)
	e.log.Debug("link target renamed", "from", oldPath, "to", newPath, "links", len(matches))

	for _, d := range matches {
		if err := e.links.SetTarget(ctx, d.LinkPath, newPath); err != nil {
			e.log.Warn("link not retargeted", "link", d.LinkPath, "error", err)
			continue
		}

		linkPath := d.LinkPath
		if name := followName(linkPath, d.TargetName, newName); name != "" {
			renamed, err := e.links.Rename(ctx, linkPath, name, e.opts.RenameRetries, e.opts.RenameRetryDelay)
			if err != nil {
				e.log.Warn("link keeps its old name", "link", linkPath, "error", err)
			} else {
				linkPath = renamed
			}
		}

		e.Links.Unregister(d.LinkPath)
		e.Links.Register(registry.Link{TargetName: newName, LinkPath: linkPath}, newPath)

		e.log.Info("link retargeted", "link", linkPath, "from", oldPath, "to", newPath)
		e.record(journal.CategoryLink, journal.OutcomeRenamed, linkPath, oldPath, newPath)
	}
}

// LinkTargetDeleted schedules classification of a vanished link target.
// After the settle delay each matching link is resolved: a target found
// elsewhere is a move and the link is retargeted, otherwise the link file
// is removed.
func (e *Engine) LinkTargetDeleted(ctx context.Context, path string) {
	dir := filepath.Dir(path)
	matches := e.Links.Match(dir, filepath.Base(path))
	if len(matches) == 0 {
		return
	}

	e.log.Debug("link target deleted", "path", path, "links", len(matches))

	e.sched.After(ctx, e.opts.LinkSettle, "link-delete", func(ctx context.Context) {
		for _, d := range matches {
			verdict, moved := Classify(e.links.Resolve(ctx, d.LinkPath), path, nil)

			if verdict == VerdictMoved {
				if err := e.links.SetTarget(ctx, d.LinkPath, moved); err != nil {
					e.log.Warn("moved link not retargeted", "link", d.LinkPath, "error", err)
					continue
				}
				e.Links.Register(registry.Link{TargetName: filepath.Base(moved), LinkPath: d.LinkPath}, moved)
				e.log.Info("link target moved", "link", d.LinkPath, "from", path, "to", moved)
				e.record(journal.CategoryLink, journal.OutcomeMoved, d.LinkPath, path, moved)
				continue
			}

			if err := e.links.Remove(d.LinkPath); err != nil {
				e.log.Warn("dead link not removed", "link", d.LinkPath, "error", err)
				continue
			}
			e.log.Info("dead link removed", "link", d.LinkPath, "target", path)
			e.record(journal.CategoryLink, journal.OutcomeDeleted, d.LinkPath, path, "")
		}

		e.Links.Remove(dir, matches...)
	})
}

// followName returns the file name a link should take after its target was
// renamed to newTarget, or "" when the link is not named after oldTarget.
// A "-N" collision suffix still counts as named after the target.
func followName(linkPath, oldTarget, newTarget string) string {
	ext := filepath.Ext(linkPath)
	stem := strings.TrimSuffix(filepath.Base(linkPath), ext)

	oldStem := strings.TrimSuffix(oldTarget, filepath.Ext(oldTarget))
	newStem := strings.TrimSuffix(newTarget, filepath.Ext(newTarget))

	for _, s := range []string{stem, trimCounter(stem)} {
		switch {
		case fsutil.EqualFold(s, oldTarget):
			return newTarget + ext
		case fsutil.EqualFold(s, oldStem):
			return newStem + ext
		}
	}
	return ""
}

// trimCounter strips a trailing "-N" collision suffix.
func trimCounter(stem string) string {
	i := strings.LastIndexByte(stem, '-')
	if i <= 0 || i == len(stem)-1 {
		return stem
	}
	if _, err := strconv.Atoi(stem[i+1:]); err != nil {
		return stem
	}
	return stem[:i]
}
