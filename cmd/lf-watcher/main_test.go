package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/lf-watcher/pkg/config"
	"github.com/0xmhha/lf-watcher/pkg/display"
	"github.com/0xmhha/lf-watcher/pkg/journal"
	"github.com/0xmhha/lf-watcher/pkg/logger"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

// writeConfig saves a configuration rooted in a temp directory and returns
// it with its path.
func writeConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Document.Path = filepath.Join(base, "lf-windows", "config.yaml")
	cfg.Document.TrackingDir = filepath.Join(base, "lf-windows", "tracking")
	cfg.Workspace.Root = filepath.Join(base, "Workspace")
	cfg.Storage.JournalPath = filepath.Join(base, "journal.db")
	cfg.Shortcut.SearchDepth = 1
	cfg.Logging.Level = "error"

	path := filepath.Join(base, "lf-watcher.yaml")
	require.NoError(t, config.Save(cfg, path))
	return cfg, path
}

func TestEffectiveLevel(t *testing.T) {
	tests := []struct {
		base      string
		verbosity int
		want      string
	}{
		{"info", 0, "info"},
		{"info", 1, "debug"},
		{"info", 5, "debug"},
		{"error", 1, "warn"},
		{"warn", 2, "debug"},
		{"bogus", 0, "info"},
	}

	for _, tt := range tests {
		if got := effectiveLevel(tt.base, tt.verbosity); got != tt.want {
			t.Errorf("effectiveLevel(%q, %d) = %q, want %q", tt.base, tt.verbosity, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    journal.Category
		wantErr bool
	}{
		{"", "", false},
		{"link", journal.CategoryLink, false},
		{"Bookmark", journal.CategoryBookmark, false},
		{" yank ", journal.CategoryYank, false},
		{"session", "", true},
	}

	for _, tt := range tests {
		got, err := parseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultFormat(t *testing.T) {
	assert.Equal(t, display.FormatSimple, defaultFormat(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, display.FormatSimple, defaultFormat(f))
}

func TestNoCommand(t *testing.T) {
	out, err := execute(t, "")
	assert.ErrorIs(t, err, errNoCommand)
	assert.Contains(t, out, "lf-watcher")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "lf-watcher dev\n", out)
}

func TestConfigPath(t *testing.T) {
	_, path := writeConfig(t)

	out, err := execute(t, "", "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, config.DefaultConfigPath())
	assert.Contains(t, out, "Active configuration: "+path)
}

func TestConfigShow(t *testing.T) {
	cfg, path := writeConfig(t)

	out, err := execute(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+path)
	assert.Contains(t, out, cfg.Document.Path)

	out, err = execute(t, "", "--config", path, "config", "show", "--format", "json")
	require.NoError(t, err)
	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, cfg.Workspace.Root, shown.Workspace.Root)

	_, err = execute(t, "", "--config", path, "config", "show", "--format", "toml")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	out, err := execute(t, "", "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Reconcile, cfg.Reconcile)
}

func TestConfigInitExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0600))

	tests := []struct {
		name      string
		stdin     string
		args      []string
		overwrite bool
	}{
		{"declined", "n\n", nil, false},
		{"no answer", "", nil, false},
		{"confirmed", "y\n", nil, true},
		{"forced", "", []string{"--force"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0600))

			args := append([]string{"config", "init", "--output", path}, tt.args...)
			out, err := execute(t, tt.stdin, args...)
			require.NoError(t, err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			if tt.overwrite {
				assert.NotEqual(t, "# mine\n", string(data))
			} else {
				assert.Equal(t, "# mine\n", string(data))
				assert.Contains(t, out, "cancelled")
			}
		})
	}
}

func TestScan(t *testing.T) {
	cfg, path := writeConfig(t)

	proj := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.MkdirAll(proj, 0755))
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Document.Path), 0755))
	require.NoError(t, os.WriteFile(cfg.Document.Path, []byte("bookmarks:\n  p: '"+proj+"'\n"), 0644))

	out, err := execute(t, "", "--config", path, "scan", "--format", "json")
	require.NoError(t, err)

	var s display.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1, s.Bookmarks)
	assert.Equal(t, cfg.Workspace.Root, s.Workspace)
	assert.FileExists(t, filepath.Join(cfg.Document.TrackingDir, "p.lnk"))
}

func TestScanJournalLocked(t *testing.T) {
	cfg, path := writeConfig(t)

	j, err := journal.Open(journal.Config{DBPath: cfg.Storage.JournalPath}, logger.Noop())
	require.NoError(t, err)
	defer j.Close()

	_, err = execute(t, "", "--config", path, "scan")
	assert.ErrorIs(t, err, journal.ErrJournalLocked)
}

func TestResolve(t *testing.T) {
	_, path := writeConfig(t)
	dir := t.TempDir()

	target := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(target, 0755))
	link := filepath.Join(dir, "docs.lnk")
	store := shortcut.NewStore(shortcut.DefaultOptions(), logger.Noop())
	_, err := store.CreateOrUpdate(link, target)
	require.NoError(t, err)

	moved := filepath.Join(dir, "archive", "docs")
	require.NoError(t, os.MkdirAll(filepath.Dir(moved), 0755))
	require.NoError(t, os.Rename(target, moved))

	out, err := execute(t, "", "--config", path, "resolve", link, "--format", "json")
	require.NoError(t, err)

	var r display.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, link, r.Link)
	assert.Equal(t, target, r.Target)
	assert.Equal(t, "resolved", r.Status)
	assert.Equal(t, moved, r.Path)
}

func TestResolveMissingLink(t *testing.T) {
	_, path := writeConfig(t)
	link := filepath.Join(t.TempDir(), "gone.lnk")

	out, err := execute(t, "", "--config", path, "resolve", link, "--format", "simple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, link+": unavailable ("), out)
}

func TestHistory(t *testing.T) {
	cfg, path := writeConfig(t)

	j, err := journal.Open(journal.Config{DBPath: cfg.Storage.JournalPath}, logger.Noop())
	require.NoError(t, err)
	require.NoError(t, j.Record(&journal.Entry{
		Time:     time.Now().Add(-48 * time.Hour),
		Category: journal.CategoryBookmark, Outcome: journal.OutcomeDeleted,
		Key: "old", OldPath: "/src/old",
	}))
	require.NoError(t, j.Record(&journal.Entry{
		Category: journal.CategoryBookmark, Outcome: journal.OutcomeRenamed,
		Key: "p", OldPath: "/src/a", NewPath: "/src/b",
	}))
	require.NoError(t, j.Record(&journal.Entry{
		Category: journal.CategoryLink, Outcome: journal.OutcomeDeleted,
		Key: "/ws/a.lnk", OldPath: "/src/c",
	}))
	require.NoError(t, j.Close())

	tests := []struct {
		name string
		args []string
		want []string
		deny []string
	}{
		{"all", nil, []string{"bookmark renamed p: /src/a -> /src/b", "link deleted /ws/a.lnk: /src/c", "bookmark deleted old"}, nil},
		{"category", []string{"--category", "link"}, []string{"link deleted"}, []string{"bookmark"}},
		{"since", []string{"--since", "24h"}, []string{"renamed p"}, []string{"deleted old"}},
		{"limit", []string{"-n", "1"}, []string{"link deleted"}, []string{"renamed p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", path, "history", "--format", "simple"}, tt.args...)
			out, err := execute(t, "", args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, d := range tt.deny {
				assert.NotContains(t, out, d)
			}
		})
	}

	_, err = execute(t, "", "--config", path, "history", "--category", "session")
	assert.Error(t, err)
}
