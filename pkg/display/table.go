package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/lf-watcher/pkg/journal"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatSummary implements Formatter.FormatSummary.
func (f *tableFormatter) FormatSummary(w io.Writer, s Summary) error {
	if err := writeHeader(w, "Reconciliation Summary", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Document", orDash(s.Document)},
		{"Workspace", orDash(s.Workspace)},
		{"Workspace Links", formatNumber(s.Links)},
		{"Bookmarks", formatNumber(s.Bookmarks)},
		{"Yank Entries", formatNumber(s.YankEntries)},
		{"Tracking Links", formatNumber(s.Anchored)},
		{"Tracking Failures", formatNumber(s.Failed)},
		{"Orphans Pruned", formatNumber(len(s.Pruned))},
		{"Offline Moves", formatNumber(len(s.Healed))},
	}

	if err := f.writeTable(w, []string{"Item", "Value"}, rows); err != nil {
		return err
	}

	if len(s.Healed) == 0 {
		return nil
	}

	if err := writeHeader(w, "Offline Moves", f.config.Compact); err != nil {
		return err
	}

	heals := make([][]string, len(s.Healed))
	for i, h := range s.Healed {
		heals[i] = []string{h.Section, orDash(h.Key), h.OldPath, h.NewPath}
	}
	return f.writeTable(w, []string{"Section", "Key", "From", "To"}, heals)
}

// FormatHistory implements Formatter.FormatHistory.
func (f *tableFormatter) FormatHistory(w io.Writer, entries []*journal.Entry) error {
	if err := writeHeader(w, "Reconciliation History", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Category", "Outcome", "Key", "From", "To"}
	if f.config.ShowTimestamps {
		header = append([]string{"Time"}, header...)
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		row := []string{string(e.Category), string(e.Outcome), e.Key, orDash(e.OldPath), orDash(e.NewPath)}
		if f.config.ShowTimestamps {
			row = append([]string{e.Time.Local().Format(timeLayout)}, row...)
		}
		rows[i] = row
	}

	return f.writeTable(w, header, rows)
}

// FormatResolution implements Formatter.FormatResolution.
func (f *tableFormatter) FormatResolution(w io.Writer, r Resolution) error {
	rows := [][]string{
		{"Link", r.Link},
		{"Stored Target", orDash(r.Target)},
		{"Status", r.Status},
		{"Resolved Path", orDash(r.Path)},
	}
	if r.Error != "" {
		rows = append(rows, []string{"Error", r.Error})
	}

	return f.writeTable(w, []string{"Field", "Value"}, rows)
}

// writeTable writes rows under header with left-aligned columns.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "Nothing recorded")
		return err
	}

	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			if i < len(widths) && width(cell) > widths[i] {
				widths[i] = width(cell)
			}
		}
	}

	lines := [][]string{header}
	if !f.config.Compact {
		rule := make([]string, len(widths))
		for i, n := range widths {
			rule[i] = strings.Repeat("-", n)
		}
		lines = append(lines, rule)
	}
	lines = append(lines, rows...)

	for _, cells := range lines {
		if _, err := fmt.Fprintln(w, f.row(cells, widths)); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

// row pads cells to widths and joins them. The last column is not padded.
func (f *tableFormatter) row(cells []string, widths []int) string {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		b.WriteString(cell)
		if i < len(cells)-1 && i < len(widths) {
			b.WriteString(strings.Repeat(" ", widths[i]-width(cell)))
		}
	}
	return b.String()
}
