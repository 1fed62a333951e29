package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# lf-windows settings
theme: dark
workspaceDirectoryName: Links
bookmarks:
  d: /home/u/docs
  p: /home/u/projects # main checkout
yankHistory:
  - - /home/u/a.txt
    - /home/u/b.txt
  - - /home/u/c.txt
keyBindings:
  j: down
  k: up
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Links", doc.WorkspaceDirectoryName)
	assert.Equal(t, []Bookmark{{"d", "/home/u/docs"}, {"p", "/home/u/projects"}}, doc.Bookmarks)
	assert.Equal(t, [][]string{{"/home/u/a.txt", "/home/u/b.txt"}, {"/home/u/c.txt"}}, doc.YankHistory)

	path, ok := doc.Bookmark("p")
	assert.True(t, ok)
	assert.Equal(t, "/home/u/projects", path)
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "  \n", "~\n", "---\n"} {
		doc, err := Parse([]byte(in))
		require.NoError(t, err, "input %q", in)
		assert.Empty(t, doc.Bookmarks)
		assert.Empty(t, doc.YankHistory)
		assert.Equal(t, DefaultWorkspaceName, doc.WorkspaceName())
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not a mapping", "- a\n- b\n"},
		{"bookmarks list", "bookmarks:\n  - a\n"},
		{"yank not nested", "yankHistory:\n  - /a\n"},
		{"broken yaml", "bookmarks: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestMarshalPreservesUnknownFields(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.True(t, doc.UpdateBookmark("d", "/home/u/documents"))

	out, err := doc.Marshal()
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)

	assert.Equal(t, "/home/u/documents", again.Bookmarks[0].Path)
	assert.Equal(t, "p", again.Bookmarks[1].Key)
	assert.Equal(t, doc.YankHistory, again.YankHistory)

	s := string(out)
	assert.Contains(t, s, "theme: dark")
	assert.Contains(t, s, "keyBindings:")
	assert.Contains(t, s, "# lf-windows settings")
	// The untouched yank section keeps its node and comments.
	assert.Contains(t, s, "workspaceDirectoryName: Links")
}

func TestMarshalFromEmpty(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)

	doc.Bookmarks = []Bookmark{{"h", "/home/u"}}
	out, err := doc.Marshal()
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Bookmarks, again.Bookmarks)
}

func TestBookmarkEdits(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.False(t, doc.UpdateBookmark("d", "/home/u/docs"), "same path is not a change")
	assert.False(t, doc.UpdateBookmark("missing", "/x"), "unknown key is not added")
	assert.True(t, doc.UpdateBookmark("d", "/srv/docs"))

	assert.True(t, doc.RemoveBookmark("p"))
	assert.False(t, doc.RemoveBookmark("p"))
	assert.Equal(t, []Bookmark{{"d", "/srv/docs"}}, doc.Bookmarks)
}

func TestYankPruning(t *testing.T) {
	t.Run("only entry drops the list", func(t *testing.T) {
		doc, err := Parse([]byte(sample))
		require.NoError(t, err)

		assert.True(t, doc.RemoveYankPath("/home/u/c.txt"))
		assert.Equal(t, [][]string{{"/home/u/a.txt", "/home/u/b.txt"}}, doc.YankHistory)
	})

	t.Run("one of several keeps order", func(t *testing.T) {
		doc := &Document{YankHistory: [][]string{{"/a", "/b", "/c"}, {"/d"}}}

		assert.True(t, doc.RemoveYankPath("/B"))
		assert.Equal(t, [][]string{{"/a", "/c"}, {"/d"}}, doc.YankHistory)
	})

	t.Run("no match leaves lists alone", func(t *testing.T) {
		doc := &Document{YankHistory: [][]string{{"/a"}, {}, {"/b"}}}

		assert.False(t, doc.RemoveYankPath("/zzz"))
		assert.Equal(t, [][]string{{"/a"}, {}, {"/b"}}, doc.YankHistory)
	})
}

func TestReplaceYankPath(t *testing.T) {
	doc := &Document{YankHistory: [][]string{{"/a", "/b"}, {"/A"}}}

	assert.True(t, doc.ReplaceYankPath("/a", "/z"))
	assert.Equal(t, [][]string{{"/z", "/b"}, {"/z"}}, doc.YankHistory)
	assert.False(t, doc.ReplaceYankPath("/a", "/z"))
}

func TestEditApply(t *testing.T) {
	doc := &Document{
		Bookmarks:   []Bookmark{{"a", "/x"}},
		YankHistory: [][]string{{"/x"}},
	}

	assert.True(t, RenameBookmark("a", "/y").Apply(doc))
	assert.True(t, RenameYank("/x", "/y").Apply(doc))
	assert.True(t, DeleteYank("/y").Apply(doc))
	assert.True(t, DeleteBookmark("a").Apply(doc))

	assert.Empty(t, doc.Bookmarks)
	assert.Empty(t, doc.YankHistory)

	assert.Equal(t, "bookmarks: delete a", DeleteBookmark("a").String())
	assert.Equal(t, "yankHistory: /x -> /y", RenameYank("/x", "/y").String())
}

func TestClone(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	c := doc.Clone()
	c.Bookmarks[0].Path = "/changed"
	c.YankHistory[0][0] = "/changed"

	assert.Equal(t, "/home/u/docs", doc.Bookmarks[0].Path)
	assert.Equal(t, "/home/u/a.txt", doc.YankHistory[0][0])
}
