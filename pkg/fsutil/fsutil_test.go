package fsutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"/a/b/", filepath.FromSlash("/a/b")},
		{"/a//b", filepath.FromSlash("/a/b")},
		{"/", filepath.FromSlash("/")},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestEqualFold(t *testing.T) {
	assert.True(t, EqualFold("Docs", "docs"))
	assert.True(t, EqualFold("STRASSE", "strasse"))
	assert.False(t, EqualFold("a.txt", "b.txt"))
}

func TestSamePath(t *testing.T) {
	assert.True(t, SamePath("/Data/Docs/", "/data/docs"))
	assert.False(t, SamePath("/data/docs", "/data/doc"))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	assert.True(t, Exists(dir))
	assert.True(t, Exists(file))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
	assert.False(t, Exists(""))
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	errLocked := errors.New("still locked")
	err = Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return errLocked
	})
	assert.ErrorIs(t, err, errLocked)
	assert.Equal(t, 3, calls)
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, 5, time.Second, func() error {
		calls++
		return errors.New("locked")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
	}{
		{"~", home},
		{"~/", home},
		{"~/Workspace", filepath.Join(home, "Workspace")},
		{"~/a/b", filepath.Join(home, "a", "b")},
		{"~foo", "~foo"},
		{"~foo/bar", "~foo/bar"},
		{"/abs", "/abs"},
		{"rel/~", "rel/~"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandHome(tt.path); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
