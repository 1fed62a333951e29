package main

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/0xmhha/lf-watcher/pkg/display"
)

// defaultFormat is a table on a terminal and one line per item otherwise.
func defaultFormat(out io.Writer) display.Format {
	if f, ok := out.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		return display.FormatTable
	}
	return display.FormatSimple
}

// newFormatter builds the formatter selected by a --format flag value.
func newFormatter(cmd *cobra.Command, format string, compact bool) (display.Formatter, error) {
	f := defaultFormat(cmd.OutOrStdout())
	if format != "" {
		parsed, err := display.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		f = parsed
	}

	return display.New(display.Config{
		Format:         f,
		ShowTimestamps: true,
		Compact:        compact,
	}), nil
}
