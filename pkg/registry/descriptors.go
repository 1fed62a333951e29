package registry

import "strconv"

// Link is a workspace shortcut and the base name of its target.
type Link struct {
	TargetName string
	LinkPath   string
}

// Key implements Descriptor.
func (l Link) Key() string { return l.LinkPath }

// Name implements Descriptor.
func (l Link) Name() string { return l.TargetName }

// Bookmark is a cached projection of one bookmark entry.
type Bookmark struct {
	FolderName  string
	BookmarkKey string
}

// Key implements Descriptor.
func (b Bookmark) Key() string { return b.BookmarkKey }

// Name implements Descriptor.
func (b Bookmark) Name() string { return b.FolderName }

// Yank is one entry of the yank history, addressed by position.
type Yank struct {
	FolderName string
	ListIndex  int
	FileIndex  int
	FullPath   string
}

// Key implements Descriptor.
func (y Yank) Key() string {
	return strconv.Itoa(y.ListIndex) + ":" + strconv.Itoa(y.FileIndex)
}

// Name implements Descriptor.
func (y Yank) Name() string { return y.FolderName }
