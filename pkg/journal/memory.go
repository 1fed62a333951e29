package journal

import (
	"sync"
	"time"
)

// memoryJournal implements Journal in memory, for tests and dry runs.
type memoryJournal struct {
	mu      sync.RWMutex
	entries []*Entry
	nextID  uint64
	closed  bool
}

// NewMemory creates an in-memory journal.
func NewMemory() Journal {
	return &memoryJournal{}
}

// Record implements Journal.Record.
func (j *memoryJournal) Record(e *Entry) error {
	if e == nil || e.Category == "" || e.Outcome == "" {
		return ErrInvalidEntry
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	j.nextID++
	e.ID = j.nextID

	stored := *e
	j.entries = append(j.entries, &stored)
	return nil
}

// List implements Journal.List.
func (j *memoryJournal) List(opts ListOptions) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}

	var out []*Entry
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if !opts.Since.IsZero() && e.Time.Before(opts.Since) {
			break
		}
		if !opts.matches(e) {
			continue
		}

		cp := *e
		out = append(out, &cp)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// Prune implements Journal.Prune.
func (j *memoryJournal) Prune(before time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrJournalClosed
	}

	n := 0
	for n < len(j.entries) && j.entries[n].Time.Before(before) {
		n++
	}
	j.entries = j.entries[n:]
	return n, nil
}

// Close implements Journal.Close.
func (j *memoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}
