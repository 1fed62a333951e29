package shortcut

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
)

// errBudgetExhausted stops a search that examined too many entries.
var errBudgetExhausted = errors.New("search budget exhausted")

// Resolve returns the current location of the link's target.
//
// The stored path wins when it still carries the recorded identity. If it
// does not, the last-known parent, its ancestors (up to SearchDepth levels)
// and the configured search roots are walked breadth-first for an entry
// with the same identity. The walk is bounded by ResolveTimeout and
// SearchBudget. Resolve never returns an error; failures are reported as
// StatusUnavailable.
func (s *Store) Resolve(ctx context.Context, linkPath string) (res Resolution) {
	defer func() {
		if r := recover(); r != nil {
			res = Resolution{Status: StatusUnavailable, Err: fmt.Errorf("resolve panic: %v", r)}
		}
	}()

	link, err := ReadLink(linkPath)
	if err != nil {
		return Resolution{Status: StatusUnavailable, Err: err}
	}

	storedExists := fsutil.Exists(link.Target)

	if link.Identity == nil || link.Identity.IsZero() {
		if storedExists {
			return Resolution{Status: StatusResolved, Path: link.Target}
		}
		return Resolution{Status: StatusNotFound, Path: link.Target}
	}

	if storedExists {
		if id, idErr := identityOf(link.Target); idErr == nil && id == *link.Identity {
			return Resolution{Status: StatusResolved, Path: link.Target}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ResolveTimeout)
	defer cancel()

	found, err := s.search(ctx, link)
	switch {
	case found != "":
		s.log.Debug("link target found by identity", "link", linkPath, "from", link.Target, "to", found)
		return Resolution{Status: StatusResolved, Path: found}
	case storedExists:
		// Same name, different file: trust the name like the shell does.
		return Resolution{Status: StatusResolved, Path: link.Target}
	case err != nil && !errors.Is(err, errBudgetExhausted):
		return Resolution{Status: StatusUnavailable, Path: link.Target, Err: err}
	default:
		return Resolution{Status: StatusNotFound, Path: link.Target}
	}
}

// searchRoots lists the directories a search starts from, nearest first.
func (s *Store) searchRoots(link *Link) []string {
	var roots []string

	dir := link.WorkingDir
	if dir == "" {
		dir = filepath.Dir(link.Target)
	}
	for i := 0; i <= s.opts.SearchDepth; i++ {
		roots = append(roots, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	for _, root := range s.opts.SearchRoots {
		if root = fsutil.Normalize(root); root != "" {
			roots = append(roots, root)
		}
	}

	return roots
}

// search walks the search roots breadth-first for an entry whose identity
// matches the link's. It returns "" when nothing matched.
func (s *Store) search(ctx context.Context, link *Link) (string, error) {
	want := *link.Identity
	wantDir := link.Kind == KindDir

	visited := make(map[string]struct{})
	var queue []string
	for _, root := range s.searchRoots(link) {
		key := fsutil.DirKey(root)
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}
		queue = append(queue, root)
	}

	budget := s.opts.SearchBudget
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			// Missing or unreadable directories are skipped.
			continue
		}

		for _, entry := range entries {
			budget--
			if budget < 0 {
				return "", errBudgetExhausted
			}

			full := filepath.Join(dir, entry.Name())
			isDir := entry.IsDir()

			if link.Kind == "" || isDir == wantDir {
				if id, idErr := identityOf(full); idErr == nil && id == want {
					return full, nil
				}
			}

			if isDir && entry.Type()&os.ModeSymlink == 0 {
				key := fsutil.DirKey(full)
				if _, seen := visited[key]; !seen {
					visited[key] = struct{}{}
					queue = append(queue, full)
				}
			}
		}
	}

	return "", nil
}
