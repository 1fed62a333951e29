// Package fsutil holds the small path and retry helpers shared by the
// reconciliation packages.
//
// Path comparison follows the file manager's conventions: target names are
// matched case-insensitively on every platform, while directory keys are only
// folded where the filesystem itself is case-insensitive.
package fsutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize converts separators to the platform form and strips trailing
// separators, keeping volume roots intact.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	return filepath.Clean(filepath.FromSlash(path))
}

// Fold returns the case-folded form of s.
//
// A Caser is not safe for concurrent use, so one is built per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Lower lowercases s with language-neutral rules.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// EqualFold reports whether a and b are equal under case folding.
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}

// SamePath reports whether two paths refer to the same location, ignoring
// case and separator differences.
func SamePath(a, b string) bool {
	return EqualFold(Normalize(a), Normalize(b))
}

// DirKey returns the map key used for a directory path.
func DirKey(dir string) string {
	dir = Normalize(dir)
	switch runtime.GOOS {
	case "windows", "darwin":
		return Fold(dir)
	default:
		return dir
	}
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// ExpandHome expands a leading ~ or ~/ to the user's home directory.
// Other forms, such as ~user, are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry calls fn up to attempts times, sleeping delay between failures.
// It returns the last error when every attempt fails.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if sleepErr := Sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}

	return err
}
