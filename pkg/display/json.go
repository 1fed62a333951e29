package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/lf-watcher/pkg/journal"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatSummary implements Formatter.FormatSummary.
func (f *jsonFormatter) FormatSummary(w io.Writer, s Summary) error {
	return f.encode(w, s)
}

// FormatHistory implements Formatter.FormatHistory.
func (f *jsonFormatter) FormatHistory(w io.Writer, entries []*journal.Entry) error {
	if entries == nil {
		entries = []*journal.Entry{}
	}
	return f.encode(w, entries)
}

// FormatResolution implements Formatter.FormatResolution.
func (f *jsonFormatter) FormatResolution(w io.Writer, r Resolution) error {
	return f.encode(w, r)
}

func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(v)
}
