package shortcut

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/logger"
)

// Store creates, updates and resolves shortcut files.
//
// Thread-safety: all methods are safe for concurrent use. Concurrent writes
// to the same link are last-writer-wins.
type Store struct {
	opts Options
	log  logger.Logger
}

// NewStore creates a Store. Zero option values fall back to DefaultOptions.
func NewStore(opts Options, log logger.Logger) *Store {
	def := DefaultOptions()
	if opts.UpdateRetries <= 0 {
		opts.UpdateRetries = def.UpdateRetries
	}
	if opts.UpdateRetryDelay <= 0 {
		opts.UpdateRetryDelay = def.UpdateRetryDelay
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = def.ResolveTimeout
	}
	if opts.SearchDepth < 0 {
		opts.SearchDepth = def.SearchDepth
	}
	if opts.SearchBudget <= 0 {
		opts.SearchBudget = def.SearchBudget
	}
	if log == nil {
		log = logger.Noop()
	}

	return &Store{opts: opts, log: log}
}

// CreateOrUpdate points the link at target, writing only when the stored
// record differs. It reports whether a write happened.
func (s *Store) CreateOrUpdate(linkPath, target string) (bool, error) {
	if fsutil.Normalize(target) == "" {
		return false, ErrEmptyTarget
	}

	fresh := NewLink(target)

	if stored, err := ReadLink(linkPath); err == nil && sameRecord(stored, fresh) {
		return false, nil
	}

	if err := WriteLink(linkPath, fresh); err != nil {
		return false, err
	}

	s.log.Debug("link written", "link", linkPath, "target", fresh.Target)
	return true, nil
}

// Target returns the stored target of a link without resolving it.
func (s *Store) Target(linkPath string) (string, error) {
	link, err := ReadLink(linkPath)
	if err != nil {
		return "", err
	}
	return link.Target, nil
}

// SetTarget rewrites the target and working directory of an existing link,
// retrying while the file is transiently locked.
func (s *Store) SetTarget(ctx context.Context, linkPath, newTarget string) error {
	if fsutil.Normalize(newTarget) == "" {
		return ErrEmptyTarget
	}

	err := fsutil.Retry(ctx, s.opts.UpdateRetries, s.opts.UpdateRetryDelay, func() error {
		if _, statErr := os.Stat(linkPath); statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrLinkNotFound, linkPath)
			}
			return statErr
		}
		return WriteLink(linkPath, NewLink(newTarget))
	})
	if err != nil {
		return fmt.Errorf("failed to update link %s: %w", linkPath, err)
	}

	s.log.Debug("link retargeted", "link", linkPath, "target", newTarget)
	return nil
}

// Remove deletes a link file. A missing file is not an error.
func (s *Store) Remove(linkPath string) error {
	if err := os.Remove(linkPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove link %s: %w", linkPath, err)
	}
	return nil
}

// Rename moves a link file to a new name in the same directory, picking a
// "-N" suffix when the name is taken. It returns the final path.
func (s *Store) Rename(ctx context.Context, linkPath, newName string, attempts int, delay time.Duration) (string, error) {
	dir := filepath.Dir(linkPath)
	dest := filepath.Join(dir, newName)
	if fsutil.SamePath(dest, linkPath) {
		return linkPath, nil
	}

	ext := filepath.Ext(newName)
	stem := newName[:len(newName)-len(ext)]
	for n := 1; fsutil.Exists(dest); n++ {
		dest = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}

	err := fsutil.Retry(ctx, attempts, delay, func() error {
		return os.Rename(linkPath, dest)
	})
	if err != nil {
		return linkPath, fmt.Errorf("failed to rename link %s: %w", linkPath, err)
	}

	s.log.Debug("link renamed", "from", linkPath, "to", dest)
	return dest, nil
}
