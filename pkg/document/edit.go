package document

import "fmt"

// Section names the registry an edit targets.
type Section int

const (
	SectionBookmarks Section = iota
	SectionYank
)

// String returns the section's document key.
func (s Section) String() string {
	if s == SectionYank {
		return keyYankHistory
	}
	return keyBookmarks
}

// Edit is one change applied during a read-modify-write cycle.
//
// Bookmarks are addressed by key, yank entries by their path. An edit with
// Delete set removes its target; otherwise the target's path becomes NewPath.
type Edit struct {
	Section Section
	Key     string
	OldPath string
	NewPath string
	Delete  bool
}

// RenameBookmark points the bookmark key at newPath.
func RenameBookmark(key, newPath string) Edit {
	return Edit{Section: SectionBookmarks, Key: key, NewPath: newPath}
}

// DeleteBookmark removes the bookmark key.
func DeleteBookmark(key string) Edit {
	return Edit{Section: SectionBookmarks, Key: key, Delete: true}
}

// RenameYank rewrites yank entries equal to oldPath.
func RenameYank(oldPath, newPath string) Edit {
	return Edit{Section: SectionYank, OldPath: oldPath, NewPath: newPath}
}

// DeleteYank removes yank entries equal to oldPath.
func DeleteYank(oldPath string) Edit {
	return Edit{Section: SectionYank, OldPath: oldPath, Delete: true}
}

// Apply performs the edit and reports whether the document changed.
func (e Edit) Apply(d *Document) bool {
	switch e.Section {
	case SectionYank:
		if e.Delete {
			return d.RemoveYankPath(e.OldPath)
		}
		return d.ReplaceYankPath(e.OldPath, e.NewPath)
	default:
		if e.Delete {
			return d.RemoveBookmark(e.Key)
		}
		return d.UpdateBookmark(e.Key, e.NewPath)
	}
}

// String describes the edit for logs.
func (e Edit) String() string {
	target := e.Key
	if e.Section == SectionYank {
		target = e.OldPath
	}
	if e.Delete {
		return fmt.Sprintf("%s: delete %s", e.Section, target)
	}
	return fmt.Sprintf("%s: %s -> %s", e.Section, target, e.NewPath)
}
