package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/lf-watcher/pkg/journal"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatSummary implements Formatter.FormatSummary.
func (f *simpleFormatter) FormatSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "Links: %s | Bookmarks: %s | Yank: %s | Healed: %d | Pruned: %d | Failed: %d\n",
		formatNumber(s.Links),
		formatNumber(s.Bookmarks),
		formatNumber(s.YankEntries),
		len(s.Healed),
		len(s.Pruned),
		s.Failed)
	return err
}

// FormatHistory implements Formatter.FormatHistory.
func (f *simpleFormatter) FormatHistory(w io.Writer, entries []*journal.Entry) error {
	for _, e := range entries {
		prefix := ""
		if f.config.ShowTimestamps {
			prefix = e.Time.Local().Format(timeLayout) + " "
		}

		var err error
		if e.NewPath != "" {
			_, err = fmt.Fprintf(w, "%s%s %s %s: %s -> %s\n", prefix, e.Category, e.Outcome, e.Key, e.OldPath, e.NewPath)
		} else {
			_, err = fmt.Fprintf(w, "%s%s %s %s: %s\n", prefix, e.Category, e.Outcome, e.Key, e.OldPath)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// FormatResolution implements Formatter.FormatResolution.
func (f *simpleFormatter) FormatResolution(w io.Writer, r Resolution) error {
	if r.Error != "" {
		_, err := fmt.Fprintf(w, "%s: %s (%s)\n", r.Link, r.Status, r.Error)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %s %s\n", r.Link, r.Status, orDash(r.Path))
	return err
}
