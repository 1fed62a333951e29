package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/lf-watcher/pkg/config"
	"github.com/0xmhha/lf-watcher/pkg/document"
	"github.com/0xmhha/lf-watcher/pkg/journal"
	"github.com/0xmhha/lf-watcher/pkg/logger"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
)

const (
	eventually = 5 * time.Second
	tick       = 20 * time.Millisecond
)

// testConfig returns a configuration rooted in a temp directory with short
// delays.
func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Document.Path = filepath.Join(base, "lf-windows", "config.yaml")
	cfg.Document.TrackingDir = filepath.Join(base, "lf-windows", "tracking")
	cfg.Document.ReloadDebounce = 20 * time.Millisecond
	cfg.Document.WriteSettle = 5 * time.Millisecond
	cfg.Document.ReadRetryDelay = 5 * time.Millisecond
	cfg.Document.WriteRetryDelay = 5 * time.Millisecond
	cfg.Workspace.Root = filepath.Join(base, "Workspace")
	cfg.Reconcile.LinkSettleDelay = 20 * time.Millisecond
	cfg.Reconcile.EntrySettleDelay = 20 * time.Millisecond
	cfg.Shortcut.UpdateRetryDelay = 5 * time.Millisecond
	cfg.Shortcut.RenameRetryDelay = 5 * time.Millisecond
	cfg.Shortcut.SearchDepth = 1
	cfg.Storage.JournalPath = filepath.Join(base, "journal.db")

	files := filepath.Join(base, "files")
	require.NoError(t, os.MkdirAll(files, 0755))
	return cfg, files
}

func writeDocument(t *testing.T, path string, bookmarks ...string) {
	t.Helper()
	content := "bookmarks:\n"
	for i := 0; i+1 < len(bookmarks); i += 2 {
		content += fmt.Sprintf("  %s: '%s'\n", bookmarks[i], bookmarks[i+1])
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func bookmark(t *testing.T, path, key string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	doc, err := document.Parse(data)
	if err != nil {
		return ""
	}
	p, _ := doc.Bookmark(key)
	return p
}

// start runs d in the background and waits for the initial sync.
func start(t *testing.T, d Daemon) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(eventually):
			t.Error("daemon did not stop")
		}
		_ = d.Close()
	})

	require.Eventually(t, func() bool { return d.Workspace() != "" }, eventually, tick)
	// Let the document watcher settle before files change.
	time.Sleep(50 * time.Millisecond)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(nil, nil, logger.Noop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg, _ := testConfig(t)
	cfg.Document.Path = ""
	_, err = New(cfg, nil, logger.Noop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, config.ErrNoDocumentPath)
}

func TestWorkspaceRoot(t *testing.T) {
	named := &document.Document{WorkspaceDirectoryName: "Projects"}

	tests := []struct {
		name     string
		override string
		doc      *document.Document
		want     string
	}{
		{"default", "", &document.Document{}, filepath.Join(xdg.Home, "Workspace")},
		{"nil document", "", nil, filepath.Join(xdg.Home, "Workspace")},
		{"document name", "", named, filepath.Join(xdg.Home, "Projects")},
		{"relative override", "Elsewhere", named, filepath.Join(xdg.Home, "Elsewhere")},
		{"absolute override", "/srv/ws/", named, "/srv/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorkspaceRoot(tt.override, tt.doc); got != tt.want {
				t.Errorf("WorkspaceRoot() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScan(t *testing.T) {
	cfg, files := testConfig(t)
	proj := filepath.Join(files, "proj")
	require.NoError(t, os.MkdirAll(proj, 0755))
	writeDocument(t, cfg.Document.Path, "p", proj)

	links := shortcut.NewStore(shortcut.DefaultOptions(), logger.Noop())
	_, err := links.CreateOrUpdate(filepath.Join(cfg.Workspace.Root, "proj.lnk"), proj)
	require.NoError(t, err)

	d, err := New(cfg, journal.NewMemory(), logger.Noop())
	require.NoError(t, err)
	defer d.Close()

	s, err := d.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, cfg.Document.Path, s.Document)
	assert.Equal(t, cfg.Workspace.Root, s.Workspace)
	assert.Equal(t, 1, s.Links)
	assert.Equal(t, 1, s.Bookmarks)
	assert.Equal(t, 1, s.Anchored)
	assert.Empty(t, s.Healed)
	assert.FileExists(t, filepath.Join(cfg.Document.TrackingDir, "p.lnk"))
}

func TestScanCreatesWorkspace(t *testing.T) {
	cfg, _ := testConfig(t)

	d, err := New(cfg, nil, logger.Noop())
	require.NoError(t, err)
	defer d.Close()

	s, err := d.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Bookmarks)
	assert.DirExists(t, cfg.Workspace.Root)
}

func TestRunReconcilesBookmarkRename(t *testing.T) {
	cfg, files := testConfig(t)
	alpha := filepath.Join(files, "alpha")
	require.NoError(t, os.MkdirAll(alpha, 0755))
	writeDocument(t, cfg.Document.Path, "a", alpha)

	j := journal.NewMemory()
	d, err := New(cfg, j, logger.Noop())
	require.NoError(t, err)
	start(t, d)

	require.Equal(t, 1, d.Engine().Bookmarks.Len())

	gamma := filepath.Join(files, "gamma")
	require.NoError(t, os.Rename(alpha, gamma))

	require.Eventually(t, func() bool {
		return bookmark(t, cfg.Document.Path, "a") == gamma
	}, eventually, tick)

	entries, err := j.List(journal.ListOptions{Category: journal.CategoryBookmark})
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, journal.OutcomeRenamed, entries[0].Outcome)
}

func TestRunRemovesDeletedBookmark(t *testing.T) {
	cfg, files := testConfig(t)
	proj := filepath.Join(files, "proj")
	keep := filepath.Join(files, "keep")
	require.NoError(t, os.MkdirAll(proj, 0755))
	require.NoError(t, os.MkdirAll(keep, 0755))
	writeDocument(t, cfg.Document.Path, "p", proj, "k", keep)

	d, err := New(cfg, nil, logger.Noop())
	require.NoError(t, err)
	start(t, d)

	require.NoError(t, os.RemoveAll(proj))

	require.Eventually(t, func() bool {
		return bookmark(t, cfg.Document.Path, "p") == "" && d.Engine().Bookmarks.Len() == 1
	}, eventually, tick)
	assert.Equal(t, keep, bookmark(t, cfg.Document.Path, "k"))
}

func TestRunReloadsExternalEdits(t *testing.T) {
	cfg, files := testConfig(t)
	a := filepath.Join(files, "a")
	b := filepath.Join(files, "b")
	require.NoError(t, os.MkdirAll(a, 0755))
	require.NoError(t, os.MkdirAll(b, 0755))
	writeDocument(t, cfg.Document.Path, "a", a)

	d, err := New(cfg, nil, logger.Noop())
	require.NoError(t, err)
	start(t, d)

	writeDocument(t, cfg.Document.Path, "a", a, "b", b)

	require.Eventually(t, func() bool {
		return d.Engine().Bookmarks.Len() == 2
	}, eventually, tick)
	assert.FileExists(t, filepath.Join(cfg.Document.TrackingDir, "b.lnk"))
}

func TestRunRegistersNewWorkspaceLinks(t *testing.T) {
	cfg, files := testConfig(t)
	proj := filepath.Join(files, "proj")
	require.NoError(t, os.MkdirAll(proj, 0755))

	d, err := New(cfg, nil, logger.Noop())
	require.NoError(t, err)
	start(t, d)

	links := shortcut.NewStore(shortcut.DefaultOptions(), logger.Noop())
	_, err = links.CreateOrUpdate(filepath.Join(cfg.Workspace.Root, "sub", "proj.lnk"), proj)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(d.Engine().Links.Match(files, "proj")) == 1
	}, eventually, tick)
}

func TestRunTwice(t *testing.T) {
	cfg, _ := testConfig(t)

	d, err := New(cfg, nil, logger.Noop())
	require.NoError(t, err)
	start(t, d)

	assert.ErrorIs(t, d.Run(context.Background()), ErrDaemonRunning)
}

func TestClose(t *testing.T) {
	cfg, _ := testConfig(t)

	d, err := New(cfg, nil, logger.Noop())
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	assert.ErrorIs(t, d.Run(context.Background()), ErrDaemonClosed)
	_, err = d.Scan(context.Background())
	assert.ErrorIs(t, err, ErrDaemonClosed)
}
