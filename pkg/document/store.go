package document

import (
	"bytes"
	"context"
	"crypto/md5" // #nosec G501: change detection, not security
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/logger"
)

// Options configures a Store.
type Options struct {
	// Retries is the number of read and write attempts.
	Retries int

	// ReadRetryDelay is the pause between read attempts.
	ReadRetryDelay time.Duration

	// WriteRetryDelay is the pause between write attempts.
	WriteRetryDelay time.Duration

	// Settle is the pause before each read-modify-write cycle.
	Settle time.Duration
}

// DefaultOptions returns 3 attempts, 50ms/100ms retry delays and a 100ms settle.
func DefaultOptions() Options {
	return Options{
		Retries:         3,
		ReadRetryDelay:  50 * time.Millisecond,
		WriteRetryDelay: 100 * time.Millisecond,
		Settle:          100 * time.Millisecond,
	}
}

// Store gives read-modify-write access to the document file.
//
// There is no lock shared with the file manager. Every Mutate re-reads the
// file right before editing; cycles within this process are serialized.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	path string
	opts Options
	log  logger.Logger

	mu      sync.RWMutex
	current *Document
	digest  [md5.Size]byte
	seen    bool

	// rmw serializes read-modify-write cycles.
	rmw sync.Mutex

	// writing is non-zero while our own write is in flight.
	writing atomic.Int32
	writes  atomic.Int64
}

// NewStore creates a store for the document at path.
func NewStore(path string, opts Options, log logger.Logger) *Store {
	def := DefaultOptions()
	if opts.Retries <= 0 {
		opts.Retries = def.Retries
	}
	if opts.ReadRetryDelay <= 0 {
		opts.ReadRetryDelay = def.ReadRetryDelay
	}
	if opts.WriteRetryDelay <= 0 {
		opts.WriteRetryDelay = def.WriteRetryDelay
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if log == nil {
		log = logger.Noop()
	}

	return &Store{
		path:    path,
		opts:    opts,
		log:     log,
		current: &Document{},
	}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Current returns a copy of the last loaded or written document.
func (s *Store) Current() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Writes returns how many times the store wrote the document.
func (s *Store) Writes() int64 {
	return s.writes.Load()
}

// Load reads and parses the document and caches it. A missing or empty
// file returns ErrDocumentEmpty and leaves the cache as it was.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	data, err := s.readDocument(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	s.remember(doc, data)
	return doc.Clone(), nil
}

// Reload loads the document unless its content matches what the store last
// read or wrote. It reports whether a load happened. Changes observed while
// our own write is in flight are ignored. A missing or empty file returns
// ErrDocumentEmpty.
func (s *Store) Reload(ctx context.Context) (*Document, bool, error) {
	if s.writing.Load() > 0 {
		return nil, false, nil
	}

	data, err := s.readDocument(ctx)
	if err != nil {
		return nil, false, err
	}

	sum := md5.Sum(data) // #nosec G401
	s.mu.RLock()
	same := s.seen && sum == s.digest
	s.mu.RUnlock()
	if same {
		return nil, false, nil
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, false, err
	}

	s.remember(doc, data)
	return doc.Clone(), true, nil
}

// Applied reports, per edit passed to Mutate, whether it changed the
// document.
type Applied []bool

// Any reports whether at least one edit changed the document.
func (a Applied) Any() bool {
	for _, ok := range a {
		if ok {
			return true
		}
	}
	return false
}

// Mutate runs one read-modify-write cycle: settle, re-read the file, apply
// edits, and write back only if something changed. The result tells which
// edits changed the document; it is nil when err is non-nil. Edits are never
// applied to a missing or empty document.
func (s *Store) Mutate(ctx context.Context, edits ...Edit) (Applied, error) {
	if len(edits) == 0 {
		return nil, nil
	}

	s.rmw.Lock()
	defer s.rmw.Unlock()

	if err := fsutil.Sleep(ctx, s.opts.Settle); err != nil {
		return nil, err
	}

	data, err := s.readDocument(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	applied := make(Applied, len(edits))
	for i, e := range edits {
		if e.Apply(doc) {
			applied[i] = true
			s.log.Debug("document edit applied", "edit", e.String())
		}
	}

	if !applied.Any() {
		s.remember(doc, data)
		return applied, nil
	}

	out, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	if err := s.write(ctx, out); err != nil {
		return nil, err
	}

	s.remember(doc, out)
	s.log.Info("document updated", "path", s.path, "edits", len(edits))
	return applied, nil
}

func (s *Store) remember(doc *Document, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = doc.Clone()
	s.digest = md5.Sum(data) // #nosec G401
	s.seen = true
}

// readDocument reads the file and rejects a missing or blank one.
func (s *Store) readDocument(ctx context.Context) ([]byte, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrDocumentEmpty
	}
	return data, nil
}

// read returns the file content, nil when the file does not exist.
func (s *Store) read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := fsutil.Retry(ctx, s.opts.Retries, s.opts.ReadRetryDelay, func() error {
		b, err := os.ReadFile(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			data = nil
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, s.path, err)
	}
	return data, nil
}

// write replaces the file through a temporary sibling.
func (s *Store) write(ctx context.Context, data []byte) error {
	s.writing.Add(1)
	defer s.writing.Add(-1)

	// Record the digest first so a change event racing the rename is
	// recognized as our own.
	s.mu.Lock()
	s.digest = md5.Sum(data) // #nosec G401
	s.seen = true
	s.mu.Unlock()

	err := fsutil.Retry(ctx, s.opts.Retries, s.opts.WriteRetryDelay, func() error {
		return replaceFile(s.path, data)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, s.path, err)
	}

	s.writes.Add(1)
	return nil
}

func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	perm := fs.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
