package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/logger"
)

// Bucket names.
var (
	bucketEntries = []byte("entries") // ID -> Entry
)

// boltJournal implements Journal using BoltDB.
type boltJournal struct {
	db     *bolt.DB
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the journal database.
//
// Parameters:
//   - cfg: Journal configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Journal
//   - Error if database cannot be opened
func Open(cfg Config, log logger.Logger) (Journal, error) {
	// Set default timeout.
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if log == nil {
		log = logger.Noop()
	}

	dbPath := fsutil.ExpandHome(cfg.DBPath)

	// Create directory if it doesn't exist.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrJournalLocked, dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize bucket.
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketEntries)
		return createErr
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, fmt.Errorf("failed to create entries bucket: %w", err)
	}

	log.Debug("journal opened", "db_path", dbPath)

	return &boltJournal{
		db:     db,
		logger: log,
	}, nil
}

// Record implements Journal.Record.
func (j *boltJournal) Record(e *Entry) error {
	if e == nil || e.Category == "" || e.Outcome == "" {
		return ErrInvalidEntry
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)

		id, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate entry id: %w", err)
		}
		e.ID = id

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		if err := b.Put(itob(id), data); err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}
		return nil
	})
}

// List implements Journal.List.
func (j *boltJournal) List(opts ListOptions) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}

	var entries []*Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()

		// Keys are big-endian IDs, so walking backwards is newest first.
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				j.logger.Warn("skipping corrupted journal entry",
					"id", binary.BigEndian.Uint64(k),
					"error", err)
				continue
			}

			if !opts.Since.IsZero() && e.Time.Before(opts.Since) {
				break
			}
			if !opts.matches(&e) {
				continue
			}

			entries = append(entries, &e)
			if opts.Limit > 0 && len(entries) >= opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Prune implements Journal.Prune.
func (j *boltJournal) Prune(before time.Time) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrJournalClosed
	}

	removed := 0
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)

		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil || e.Time.Before(before) {
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			break
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("failed to delete entry: %w", err)
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		j.logger.Info("journal pruned", "removed", removed)
	}
	return removed, nil
}

// Close implements Journal.Close.
func (j *boltJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (o ListOptions) matches(e *Entry) bool {
	return o.Category == "" || e.Category == o.Category
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
