package shortcut

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
)

// NewLink builds the link record for target, capturing its kind and
// identity when the target exists.
func NewLink(target string) *Link {
	target = fsutil.Normalize(target)
	link := &Link{
		Target:     target,
		WorkingDir: filepath.Dir(target),
	}

	info, err := os.Lstat(target)
	if err != nil {
		return link
	}

	link.Kind = KindFile
	if info.IsDir() {
		link.Kind = KindDir
	}
	if id, idErr := identityOf(target); idErr == nil {
		link.Identity = &id
	}

	return link
}

// ReadLink decodes the link file at path.
func ReadLink(path string) (*Link, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, path)
		}
		return nil, fmt.Errorf("failed to read link %s: %w", path, err)
	}

	var link Link
	if err := yaml.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLinkCorrupt, path, err)
	}
	if link.Target == "" {
		return nil, fmt.Errorf("%w: %s: no target", ErrLinkCorrupt, path)
	}

	link.Target = fsutil.Normalize(link.Target)
	return &link, nil
}

// WriteLink writes link to path through a temporary file in the same
// directory, so readers never see a partial record.
func WriteLink(path string, link *Link) error {
	if link == nil || link.Target == "" {
		return ErrEmptyTarget
	}

	data, err := yaml.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create link directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp link: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("failed to write temp link: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp link: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace link %s: %w", path, err)
	}

	return nil
}

// sameRecord reports whether a stored link still describes target.
func sameRecord(stored, fresh *Link) bool {
	if stored.Target != fresh.Target {
		return false
	}
	if fresh.Identity == nil {
		return true
	}
	return stored.Identity != nil && *stored.Identity == *fresh.Identity
}
