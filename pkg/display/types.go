// Package display provides output formatting for reconciliation results.
//
// It supports multiple output formats (table, JSON, simple text) for scan
// summaries, journal history and single link resolutions.
package display

import (
	"io"

	"github.com/0xmhha/lf-watcher/pkg/journal"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays results in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays results as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays results in simple text format.
	FormatSimple Format = "simple"
)

// Formatter formats and displays reconciliation results.
type Formatter interface {
	// FormatSummary formats the outcome of a scan.
	//
	// Parameters:
	//   - w: Output writer
	//   - s: Summary to format
	//
	// Returns error if formatting fails.
	FormatSummary(w io.Writer, s Summary) error

	// FormatHistory formats journal entries, newest first.
	//
	// Parameters:
	//   - w: Output writer
	//   - entries: Journal entries to format
	//
	// Returns error if formatting fails.
	FormatHistory(w io.Writer, entries []*journal.Entry) error

	// FormatResolution formats the resolution of one link.
	FormatResolution(w io.Writer, r Resolution) error
}

// Summary is the outcome of a one-shot scan.
type Summary struct {
	Document    string   `json:"document"`
	Workspace   string   `json:"workspace"`
	Links       int      `json:"links"`
	Bookmarks   int      `json:"bookmarks"`
	YankEntries int      `json:"yank_entries"`
	Healed      []Heal   `json:"healed,omitempty"`
	Anchored    int      `json:"anchored"`
	Failed      int      `json:"failed"`
	Pruned      []string `json:"pruned,omitempty"`
}

// Heal is an offline move that was written back to the document.
type Heal struct {
	Section string `json:"section"`
	Key     string `json:"key,omitempty"`
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

// Resolution is the result of resolving a single link.
type Resolution struct {
	Link   string `json:"link"`
	Target string `json:"target"`
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowTimestamps enables timestamp display.
	// Default: true.
	ShowTimestamps bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
