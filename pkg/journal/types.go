// Package journal keeps a persistent record of reconciliation outcomes.
//
// Every rename, move, deletion and offline heal the daemon applies is
// appended as an Entry. The history command reads it back; old entries are
// pruned after the configured retention.
//
// Example usage:
//
//	j, err := journal.Open(journal.Config{
//	    DBPath: "~/.local/state/lf-watcher/journal.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer j.Close()
//
//	_ = j.Record(&journal.Entry{
//	    Category: journal.CategoryBookmark,
//	    Outcome:  journal.OutcomeMoved,
//	    Key:      "p",
//	    OldPath:  "/home/u/project",
//	    NewPath:  "/srv/project",
//	})
package journal

import "time"

// Category is the kind of reference an entry is about.
type Category string

// Reference categories.
const (
	CategoryLink     Category = "link"
	CategoryBookmark Category = "bookmark"
	CategoryYank     Category = "yank"
)

// Outcome is what happened to a reference.
type Outcome string

// Outcomes.
const (
	OutcomeRenamed Outcome = "renamed"
	OutcomeMoved   Outcome = "moved"
	OutcomeDeleted Outcome = "deleted"
	OutcomeHealed  Outcome = "healed"
)

// Entry is one recorded outcome.
type Entry struct {
	// ID is assigned by Record and increases monotonically.
	ID uint64 `json:"id"`

	// Time is when the outcome was applied.
	Time time.Time `json:"time"`

	Category Category `json:"category"`
	Outcome  Outcome  `json:"outcome"`

	// Key identifies the reference: link path, bookmark key or yank path.
	Key string `json:"key"`

	OldPath string `json:"old_path,omitempty"`
	NewPath string `json:"new_path,omitempty"`
}

// ListOptions filters List.
type ListOptions struct {
	// Since drops entries older than this time when non-zero.
	Since time.Time

	// Category keeps only one category when non-empty.
	Category Category

	// Limit caps the number of entries when positive.
	Limit int
}

// Journal stores reconciliation outcomes.
type Journal interface {
	// Record appends an entry, assigning its ID and, if unset, its Time.
	Record(e *Entry) error

	// List returns matching entries, newest first.
	List(opts ListOptions) ([]*Entry, error)

	// Prune deletes entries older than before and returns how many.
	Prune(before time.Time) (int, error)

	// Close releases the journal.
	Close() error
}

// Config contains journal configuration.
type Config struct {
	// DBPath is the BoltDB file path.
	DBPath string

	// Timeout bounds waiting for the database file lock.
	// Default: 1s.
	Timeout time.Duration
}
