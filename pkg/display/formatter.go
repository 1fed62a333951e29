package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// timeLayout is used for journal timestamps.
const timeLayout = "2006-01-02 15:04:05"

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	// Set defaults.
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatSimple:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or simple)", s)
	}
}

// formatNumber groups the digits of n in thousands: 1234567 -> 1,234,567.
func formatNumber(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String()
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// writeHeader writes a section title, underlined unless compact.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintln(w, title)
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", width(title)))
	return err
}

// width is the display width of s, counted in runes so non-ASCII paths
// line up.
func width(s string) int {
	return utf8.RuneCountInString(s)
}
