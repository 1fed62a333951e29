package reconcile

import (
	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
)

// Verdict is the classification of an ambiguous delete.
type Verdict int

const (
	// VerdictDeleted means the target is gone.
	VerdictDeleted Verdict = iota

	// VerdictMoved means the target lives on at a new path.
	VerdictMoved
)

// String returns the verdict name.
func (v Verdict) String() string {
	if v == VerdictMoved {
		return "moved"
	}
	return "deleted"
}

// Classify decides what a delete of deletedPath was, given the resolution
// of the reference's shortcut. Only a resolved path that exists and is not
// the deleted path itself counts as a move; everything else, unavailable
// links included, is a deletion.
func Classify(res shortcut.Resolution, deletedPath string, exists func(string) bool) (Verdict, string) {
	if exists == nil {
		exists = fsutil.Exists
	}
	if res.Status != shortcut.StatusResolved || res.Path == "" {
		return VerdictDeleted, ""
	}
	if fsutil.SamePath(res.Path, deletedPath) || !exists(res.Path) {
		return VerdictDeleted, ""
	}
	return VerdictMoved, res.Path
}
