package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xmhha/lf-watcher/pkg/logger"
)

func newStarted(t *testing.T, cfg Config, paths ...string) Watcher {
	t.Helper()

	w, err := New(cfg, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		if err := w.Close(); err != nil {
			t.Logf("Close() error = %v", err)
		}
	})

	if err := w.Start(ctx, paths); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Give fsnotify a moment to register watches.
	time.Sleep(50 * time.Millisecond)
	return w
}

// waitFor returns the first event matching pred, failing after timeout.
func waitFor(t *testing.T, w Watcher, timeout time.Duration, pred func(Event) bool) Event {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case ev := <-w.Events():
			if pred(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timeout waiting for event")
			return Event{}
		}
	}
}

// expectNone fails if an event matching pred arrives within d.
func expectNone(t *testing.T, w Watcher, d time.Duration, pred func(Event) bool) {
	t.Helper()

	deadline := time.After(d)
	for {
		select {
		case ev := <-w.Events():
			if pred(ev) {
				t.Errorf("unexpected event %s %s", ev.Op, ev.Path)
			}
		case <-deadline:
			return
		}
	}
}

func TestNew(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if w == nil {
		t.Error("New() returned nil watcher")
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := Config{
		DebounceInterval:        200 * time.Millisecond,
		RenamePairWindow:        50 * time.Millisecond,
		Recursive:               true,
		CircuitBreakerThreshold: 10,
		Name:                    "workspace",
	}

	w, err := New(cfg, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}
}

func TestStartInvalidPath(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistent := filepath.Join(tmpDir, "nonexistent")

	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			t.Logf("Close() error = %v", err)
		}
	}()

	// Should skip nonexistent path and return error if all paths are invalid.
	if startErr := w.Start(context.Background(), []string{nonExistent}); startErr != ErrNoWatchPaths {
		t.Errorf("Start() error = %v, want ErrNoWatchPaths", startErr)
	}
}

func TestStartNoPaths(t *testing.T) {
	w := newStarted(t, Config{})

	if w.Watched(t.TempDir()) {
		t.Error("Watched() = true before Add")
	}
}

func TestStartAlreadyStarted(t *testing.T) {
	tmpDir := t.TempDir()
	w := newStarted(t, Config{}, tmpDir)

	if startErr := w.Start(context.Background(), []string{tmpDir}); startErr != ErrAlreadyStarted {
		t.Errorf("Start() error = %v, want ErrAlreadyStarted", startErr)
	}
}

func TestAdd(t *testing.T) {
	tmpDir := t.TempDir()
	w := newStarted(t, Config{})

	if err := w.Add(tmpDir); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !w.Watched(tmpDir) {
		t.Error("Watched() = false after Add")
	}

	// Adding twice is a no-op.
	if err := w.Add(tmpDir); err != nil {
		t.Errorf("second Add() error = %v", err)
	}

	file := filepath.Join(tmpDir, "f.txt")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.Add(file); err == nil {
		t.Error("Add(file) error = nil, want error")
	}

	if err := w.Add(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Add(missing) error = nil, want error")
	}
}

func TestFileCreate(t *testing.T) {
	tmpDir := t.TempDir()
	w := newStarted(t, Config{}, tmpDir)

	testFile := filepath.Join(tmpDir, "new.txt")
	if err := os.WriteFile(testFile, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op == OpCreate })
	if ev.Path != testFile {
		t.Errorf("Event path = %s, want %s", ev.Path, testFile)
	}
	if ev.Dir() != tmpDir || ev.Name() != "new.txt" {
		t.Errorf("Dir/Name = %s/%s", ev.Dir(), ev.Name())
	}
}

func TestFileDelete(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "gone.txt")
	if err := os.WriteFile(testFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newStarted(t, Config{}, tmpDir)

	if err := os.Remove(testFile); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op == OpRemove })
	if ev.Path != testFile {
		t.Errorf("Event path = %s, want %s", ev.Path, testFile)
	}
}

func TestRenameSameDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	oldPath := filepath.Join(tmpDir, "a.txt")
	newPath := filepath.Join(tmpDir, "a2.txt")
	if err := os.WriteFile(oldPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newStarted(t, Config{RenamePairWindow: 200 * time.Millisecond}, tmpDir)

	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op == OpRename || e.Op == OpRemove })
	if ev.Op != OpRename {
		t.Fatalf("Event op = %s, want RENAME", ev.Op)
	}
	if ev.Path != oldPath || ev.NewPath != newPath {
		t.Errorf("Rename = %s -> %s, want %s -> %s", ev.Path, ev.NewPath, oldPath, newPath)
	}

	// The pair must not also surface as a remove.
	expectNone(t, w, 300*time.Millisecond, func(e Event) bool { return e.Op == OpRemove })
}

func TestMoveBetweenWatchedDirectories(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	for _, d := range []string{a, b} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	oldPath := filepath.Join(a, "doc.txt")
	if err := os.WriteFile(oldPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newStarted(t, Config{RenamePairWindow: 200 * time.Millisecond}, a, b)

	newPath := filepath.Join(b, "doc.txt")
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op == OpRename || e.Op == OpRemove })
	if ev.Op != OpRename || ev.NewPath != newPath {
		t.Errorf("got %s %s -> %s, want RENAME to %s", ev.Op, ev.Path, ev.NewPath, newPath)
	}
}

func TestMoveOutOfView(t *testing.T) {
	root := t.TempDir()
	watched := filepath.Join(root, "watched")
	elsewhere := filepath.Join(root, "elsewhere")
	for _, d := range []string{watched, elsewhere} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	oldPath := filepath.Join(watched, "doc.txt")
	if err := os.WriteFile(oldPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newStarted(t, Config{RenamePairWindow: 50 * time.Millisecond}, watched)

	if err := os.Rename(oldPath, filepath.Join(elsewhere, "doc.txt")); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op != OpChmod })
	if ev.Op != OpRemove || ev.Path != oldPath {
		t.Errorf("got %s %s, want REMOVE %s", ev.Op, ev.Path, oldPath)
	}
}

func TestFilter(t *testing.T) {
	tmpDir := t.TempDir()
	w := newStarted(t, Config{
		Filter: func(p string) bool { return filepath.Ext(p) == ".lnk" },
	}, tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, "skip.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(tmpDir, "keep.lnk")
	if err := os.WriteFile(keep, nil, 0644); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return true })
	if ev.Path != keep {
		t.Errorf("first event path = %s, want %s", ev.Path, keep)
	}
}

func TestFilterRenameIntoFilter(t *testing.T) {
	tmpDir := t.TempDir()
	tmp := filepath.Join(tmpDir, "x.tmp")
	if err := os.WriteFile(tmp, nil, 0644); err != nil {
		t.Fatal(err)
	}

	w := newStarted(t, Config{
		Filter:           func(p string) bool { return filepath.Ext(p) == ".lnk" },
		RenamePairWindow: 200 * time.Millisecond,
	}, tmpDir)

	final := filepath.Join(tmpDir, "x.lnk")
	if err := os.Rename(tmp, final); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return true })
	if ev.Op != OpCreate || ev.Path != final {
		t.Errorf("got %s %s, want CREATE %s", ev.Op, ev.Path, final)
	}
}

func TestRecursiveNewSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	w := newStarted(t, Config{
		Recursive: true,
		Filter:    func(p string) bool { return filepath.Ext(p) == ".lnk" },
	}, tmpDir)

	subDir := filepath.Join(tmpDir, "sub")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op == OpCreate && e.IsDir })
	if ev.Path != subDir {
		t.Errorf("dir event path = %s, want %s", ev.Path, subDir)
	}
	if !w.Watched(subDir) {
		t.Error("new subdirectory is not watched")
	}

	link := filepath.Join(subDir, "a.lnk")
	if err := os.WriteFile(link, nil, 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op == OpCreate && e.Path == link })
}

func TestRecursiveExistingSubdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	w := newStarted(t, Config{Recursive: true}, tmpDir)

	if !w.Watched(subDir) {
		t.Error("existing subdirectory is not watched")
	}

	if err := os.RemoveAll(filepath.Join(tmpDir, "a")); err != nil {
		t.Fatal(err)
	}

	waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Op == OpRemove && e.Path == subDir })
	if w.Watched(subDir) {
		t.Error("removed subdirectory is still watched")
	}
}

func TestDebouncing(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(testFile, []byte("a: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newStarted(t, Config{DebounceInterval: 100 * time.Millisecond}, tmpDir)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(testFile, []byte("a: 2\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, w, 2*time.Second, func(e Event) bool { return e.Path == testFile })
	expectNone(t, w, 300*time.Millisecond, func(e Event) bool { return e.Path == testFile })
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
		{Op(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.op.String(); got != tt.want {
				t.Errorf("Op.String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStopNotStarted(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			t.Logf("Close() error = %v", err)
		}
	}()

	if stopErr := w.Stop(); stopErr != ErrNotStarted {
		t.Errorf("Stop() error = %v, want ErrNotStarted", stopErr)
	}
}

func TestCloseTwice(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("First Close() error = %v", closeErr)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Second Close() error = %v", closeErr)
	}
}

func TestStartAfterClose(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("Close() error = %v", closeErr)
	}

	if startErr := w.Start(context.Background(), []string{tmpDir}); startErr != ErrWatcherClosed {
		t.Errorf("Start() error = %v, want ErrWatcherClosed", startErr)
	}

	if addErr := w.Add(tmpDir); addErr != ErrWatcherClosed {
		t.Errorf("Add() error = %v, want ErrWatcherClosed", addErr)
	}
}
