// Package document reads and edits the configuration document shared with
// the file manager.
//
// Only three fields are interpreted: workspaceDirectoryName, bookmarks and
// yankHistory. Everything else is kept as a yaml.Node tree and written back
// verbatim, so fields owned by the file manager survive our edits.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
)

// Keys of the interpreted fields.
const (
	keyWorkspace   = "workspaceDirectoryName"
	keyBookmarks   = "bookmarks"
	keyYankHistory = "yankHistory"
)

// DefaultWorkspaceName is used when the document names no workspace.
const DefaultWorkspaceName = "Workspace"

// Bookmark is one key -> path entry.
type Bookmark struct {
	Key  string
	Path string
}

// Document is the typed view of the shared document.
type Document struct {
	// WorkspaceDirectoryName is the workspace root, usually relative to home.
	WorkspaceDirectoryName string

	// Bookmarks in document order.
	Bookmarks []Bookmark

	// YankHistory is a list of copy/cut batches, newest first.
	YankHistory [][]string

	root           *yaml.Node
	bookmarksDirty bool
	yankDirty      bool
}

// Parse decodes a document. Empty input yields an empty document.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return doc, nil
	}

	m := root.Content[0]
	if m.Kind == yaml.ScalarNode && m.Tag == "!!null" {
		return doc, nil
	}
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrInvalidDocument)
	}
	doc.root = &root

	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i].Value, m.Content[i+1]
		switch key {
		case keyWorkspace:
			if val.Kind == yaml.ScalarNode && val.Tag != "!!null" {
				doc.WorkspaceDirectoryName = val.Value
			}
		case keyBookmarks:
			bms, err := decodeBookmarks(val)
			if err != nil {
				return nil, err
			}
			doc.Bookmarks = bms
		case keyYankHistory:
			yh, err := decodeYankHistory(val)
			if err != nil {
				return nil, err
			}
			doc.YankHistory = yh
		}
	}

	return doc, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func decodeBookmarks(n *yaml.Node) ([]Bookmark, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s is not a mapping", ErrInvalidDocument, keyBookmarks)
	}

	out := make([]Bookmark, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: bookmark %q is not a path", ErrInvalidDocument, k.Value)
		}
		path := v.Value
		if isNull(v) {
			path = ""
		}
		out = append(out, Bookmark{Key: k.Value, Path: path})
	}
	return out, nil
}

func decodeYankHistory(n *yaml.Node) ([][]string, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s is not a list", ErrInvalidDocument, keyYankHistory)
	}

	out := make([][]string, 0, len(n.Content))
	for _, list := range n.Content {
		var paths []string
		if err := list.Decode(&paths); err != nil {
			return nil, fmt.Errorf("%w: %s entry: %v", ErrInvalidDocument, keyYankHistory, err)
		}
		out = append(out, paths)
	}
	return out, nil
}

// Marshal encodes the document. Sections that were not edited keep their
// original nodes, including comments and styling.
func (d *Document) Marshal() ([]byte, error) {
	root := d.root
	if root == nil {
		root = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
		d.root = root
		d.bookmarksDirty = d.bookmarksDirty || len(d.Bookmarks) > 0
		d.yankDirty = d.yankDirty || len(d.YankHistory) > 0
		if d.WorkspaceDirectoryName != "" {
			setKey(root.Content[0], keyWorkspace, scalar(d.WorkspaceDirectoryName))
		}
	}

	m := root.Content[0]
	if d.bookmarksDirty {
		setKey(m, keyBookmarks, encodeBookmarks(d.Bookmarks))
	}
	if d.yankDirty {
		setKey(m, keyYankHistory, encodeYankHistory(d.YankHistory))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	return buf.Bytes(), nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func encodeBookmarks(bms []Bookmark) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, bm := range bms {
		n.Content = append(n.Content, scalar(bm.Key), scalar(bm.Path))
	}
	return n
}

func encodeYankHistory(yh [][]string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, list := range yh {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, p := range list {
			seq.Content = append(seq.Content, scalar(p))
		}
		n.Content = append(n.Content, seq)
	}
	return n
}

// setKey replaces the value of key in mapping m, appending it when absent.
func setKey(m *yaml.Node, key string, val *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = val
			return
		}
	}
	m.Content = append(m.Content, scalar(key), val)
}

// Clone returns a copy of the typed fields. The copy shares no slices with d
// and carries no node tree, so it is only meant for reading.
func (d *Document) Clone() *Document {
	c := &Document{WorkspaceDirectoryName: d.WorkspaceDirectoryName}
	c.Bookmarks = append([]Bookmark(nil), d.Bookmarks...)
	for _, list := range d.YankHistory {
		c.YankHistory = append(c.YankHistory, append([]string(nil), list...))
	}
	return c
}

// Bookmark returns the path recorded for key.
func (d *Document) Bookmark(key string) (string, bool) {
	for _, bm := range d.Bookmarks {
		if bm.Key == key {
			return bm.Path, true
		}
	}
	return "", false
}

// WorkspaceName returns the workspace directory name or its default.
func (d *Document) WorkspaceName() string {
	if name := strings.TrimSpace(d.WorkspaceDirectoryName); name != "" {
		return name
	}
	return DefaultWorkspaceName
}

// UpdateBookmark sets the path of an existing bookmark. A key the document
// no longer has is left alone.
func (d *Document) UpdateBookmark(key, path string) bool {
	for i := range d.Bookmarks {
		if d.Bookmarks[i].Key != key {
			continue
		}
		if d.Bookmarks[i].Path == path {
			return false
		}
		d.Bookmarks[i].Path = path
		d.bookmarksDirty = true
		return true
	}
	return false
}

// RemoveBookmark deletes a bookmark by key.
func (d *Document) RemoveBookmark(key string) bool {
	for i := range d.Bookmarks {
		if d.Bookmarks[i].Key == key {
			d.Bookmarks = append(d.Bookmarks[:i], d.Bookmarks[i+1:]...)
			d.bookmarksDirty = true
			return true
		}
	}
	return false
}

// ReplaceYankPath rewrites every yank entry equal to oldPath, ignoring case.
func (d *Document) ReplaceYankPath(oldPath, newPath string) bool {
	changed := false
	for _, list := range d.YankHistory {
		for j, p := range list {
			if fsutil.SamePath(p, oldPath) && p != newPath {
				list[j] = newPath
				changed = true
			}
		}
	}
	if changed {
		d.yankDirty = true
	}
	return changed
}

// RemoveYankPath drops every yank entry equal to oldPath, ignoring case,
// and removes lists left empty. Remaining entries keep their order.
func (d *Document) RemoveYankPath(oldPath string) bool {
	changed := false
	kept := make([][]string, 0, len(d.YankHistory))
	for _, list := range d.YankHistory {
		rest := make([]string, 0, len(list))
		for _, p := range list {
			if fsutil.SamePath(p, oldPath) {
				changed = true
				continue
			}
			rest = append(rest, p)
		}
		if len(rest) > 0 {
			kept = append(kept, rest)
		}
	}
	if changed {
		d.YankHistory = kept
		d.yankDirty = true
	}
	return changed
}
