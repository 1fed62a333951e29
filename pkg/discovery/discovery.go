// Package discovery finds shortcut files in workspace trees.
//
// It walks configured directories recursively and returns every file whose
// extension matches the shortcut extension, case-insensitively.
//
// Example usage:
//
//	d := discovery.New([]string{"~/Workspace"}, ".lnk", logger.Default())
//	links, err := d.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, link := range links {
//	    fmt.Printf("Link: %s\n", link.Path)
//	}
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
)

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LinkFile represents a discovered shortcut file.
type LinkFile struct {
	// Path is the absolute path to the shortcut file.
	Path string

	// Dir is the directory containing the shortcut.
	Dir string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime int64 // Unix timestamp
}

// Discoverer provides methods for discovering shortcut files.
type Discoverer interface {
	// Discover walks every configured directory and returns all shortcut
	// files found. Missing directories are skipped.
	Discover() ([]LinkFile, error)

	// DiscoverDir walks a single directory tree.
	//
	// Returns ErrDirNotFound if the directory does not exist.
	DiscoverDir(dir string) ([]LinkFile, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	baseDirs  []string
	extension string
	logger    Logger
}

// New creates a new Discoverer instance.
//
// Parameters:
//   - baseDirs: Workspace roots to scan
//   - extension: Shortcut extension including the dot (e.g. ".lnk")
//   - logger: Logger instance for diagnostic messages
//
// Returns a configured Discoverer.
func New(baseDirs []string, extension string, logger Logger) Discoverer {
	return &discoverer{
		baseDirs:  baseDirs,
		extension: extension,
		logger:    logger,
	}
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover() ([]LinkFile, error) {
	if !strings.HasPrefix(d.extension, ".") {
		return nil, ErrInvalidExtension
	}

	var all []LinkFile

	for _, baseDir := range d.baseDirs {
		expandedDir := fsutil.ExpandHome(baseDir)

		links, err := d.DiscoverDir(expandedDir)
		if err != nil {
			if errors.Is(err, ErrDirNotFound) {
				d.logger.Warn("directory not found, skipping", "path", expandedDir)
				continue
			}
			return nil, err
		}

		all = append(all, links...)
	}

	d.logger.Info("discovery complete", "total_links", len(all))
	return all, nil
}

// DiscoverDir implements Discoverer.DiscoverDir.
func (d *discoverer) DiscoverDir(dir string) ([]LinkFile, error) {
	if !strings.HasPrefix(d.extension, ".") {
		return nil, ErrInvalidExtension
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirNotFound, dir)
	}

	links := make([]LinkFile, 0, 16)

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			d.logger.Warn("error walking path",
				"path", path,
				"error", walkErr)
			if entry != nil && entry.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil // Skip but continue walking.
		}

		if entry.IsDir() || !d.isLink(entry.Name()) {
			return nil
		}

		fi, infoErr := entry.Info()
		if infoErr != nil {
			d.logger.Warn("failed to get file info",
				"path", path,
				"error", infoErr)
			return nil
		}

		links = append(links, LinkFile{
			Path:    path,
			Dir:     filepath.Dir(path),
			Size:    fi.Size(),
			ModTime: fi.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	d.logger.Debug("scanned directory",
		"path", dir,
		"links_found", len(links))

	return links, nil
}

// isLink reports whether name carries the shortcut extension.
func (d *discoverer) isLink(name string) bool {
	return strings.EqualFold(filepath.Ext(name), d.extension)
}
