// Package registry maps watched directories to the descriptors whose
// targets live in them.
//
// A Registry holds one list per parent directory. Lookups and rebuilds go
// through a map-level lock; edits to a single list take that list's own
// lock, so handlers working on different directories do not contend.
// Directories are handed to an Adder the first time a descriptor lands in
// them and are never removed.
package registry

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/logger"
)

// Descriptor is a cached reference to a target.
type Descriptor interface {
	comparable

	// Key is the natural key, unique within a registry.
	Key() string

	// Name is the cached base name of the target.
	Name() string
}

// Adder starts watching a directory.
type Adder interface {
	Add(dir string) error
}

// Entry pairs a descriptor with its target path for Replace.
type Entry[D Descriptor] struct {
	Desc   D
	Target string
}

type list[D Descriptor] struct {
	mu    sync.Mutex
	dir   string
	items []D
}

// Registry is a set of per-directory descriptor lists.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry[D Descriptor] struct {
	name  string
	adder Adder
	log   logger.Logger

	mu    sync.RWMutex
	lists map[string]*list[D]
}

// New creates an empty registry. adder may be nil.
func New[D Descriptor](name string, adder Adder, log logger.Logger) *Registry[D] {
	if log == nil {
		log = logger.Noop()
	}
	return &Registry[D]{
		name:  name,
		adder: adder,
		log:   log.With("registry", name),
		lists: make(map[string]*list[D]),
	}
}

// Register files d under the parent directory of target, replacing any
// descriptor with the same key, and watches that directory. It returns
// the directory.
func (r *Registry[D]) Register(d D, target string) string {
	dir := filepath.Dir(fsutil.Normalize(target))
	key := fsutil.DirKey(dir)

	r.mu.Lock()
	for k, l := range r.lists {
		if k != key {
			l.remove(d.Key())
		}
	}
	l, ok := r.lists[key]
	if !ok {
		l = &list[D]{dir: dir}
		r.lists[key] = l
	}
	r.mu.Unlock()

	l.put(d)
	r.watch(dir)

	return dir
}

// Unregister removes the descriptor with key from whichever list holds it.
func (r *Registry[D]) Unregister(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	removed := false
	for _, l := range r.lists {
		if l.remove(key) {
			removed = true
		}
	}
	return removed
}

// UnregisterFunc removes every descriptor for which drop returns true and
// returns them.
func (r *Registry[D]) UnregisterFunc(drop func(D) bool) []D {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []D
	for _, l := range r.lists {
		l.mu.Lock()
		kept := l.items[:0]
		for _, d := range l.items {
			if drop(d) {
				out = append(out, d)
				continue
			}
			kept = append(kept, d)
		}
		clear(l.items[len(kept):])
		l.items = kept
		l.mu.Unlock()
	}
	return out
}

// Match returns a copy of the descriptors in dir whose cached name equals
// name, ignoring case.
func (r *Registry[D]) Match(dir, name string) []D {
	l := r.get(dir)
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []D
	for _, d := range l.items {
		if fsutil.EqualFold(d.Name(), name) {
			out = append(out, d)
		}
	}
	return out
}

// Remove deletes the given descriptors from dir's list.
func (r *Registry[D]) Remove(dir string, ds ...D) int {
	l := r.get(dir)
	if l == nil {
		return 0
	}

	n := 0
	for _, d := range ds {
		if l.removeExact(d) {
			n++
		}
	}
	return n
}

// Replace atomically swaps the whole registry for entries and watches
// their directories.
func (r *Registry[D]) Replace(entries []Entry[D]) {
	fresh := make(map[string]*list[D])
	for _, e := range entries {
		dir := filepath.Dir(fsutil.Normalize(e.Target))
		key := fsutil.DirKey(dir)
		l, ok := fresh[key]
		if !ok {
			l = &list[D]{dir: dir}
			fresh[key] = l
		}
		l.put(e.Desc)
	}

	r.mu.Lock()
	r.lists = fresh
	r.mu.Unlock()

	for _, l := range fresh {
		r.watch(l.dir)
	}

	r.log.Debug("registry rebuilt", "entries", len(entries), "dirs", len(fresh))
}

// Snapshot returns a copy of every list keyed by directory.
func (r *Registry[D]) Snapshot() map[string][]D {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]D, len(r.lists))
	for _, l := range r.lists {
		l.mu.Lock()
		if len(l.items) > 0 {
			out[l.dir] = append([]D(nil), l.items...)
		}
		l.mu.Unlock()
	}
	return out
}

// Dirs returns the directories that currently hold descriptors, sorted.
func (r *Registry[D]) Dirs() []string {
	snap := r.Snapshot()
	dirs := make([]string, 0, len(snap))
	for dir := range snap {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Len returns the number of descriptors.
func (r *Registry[D]) Len() int {
	n := 0
	for _, ds := range r.Snapshot() {
		n += len(ds)
	}
	return n
}

func (r *Registry[D]) get(dir string) *list[D] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lists[fsutil.DirKey(dir)]
}

// watch hands dir to the adder. Failures leave the directory unwatched.
func (r *Registry[D]) watch(dir string) {
	if r.adder == nil {
		return
	}
	if err := r.adder.Add(dir); err != nil {
		r.log.Debug("directory left unwatched", "dir", dir, "error", err)
	}
}

func (l *list[D]) put(d D) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, cur := range l.items {
		if cur.Key() == d.Key() {
			l.items[i] = d
			return
		}
	}
	l.items = append(l.items, d)
}

func (l *list[D]) remove(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, cur := range l.items {
		if cur.Key() == key {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// removeExact removes d only if the list still holds this exact value, so
// a descriptor refreshed by a concurrent registration survives.
func (l *list[D]) removeExact(d D) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, cur := range l.items {
		if cur == d {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}
