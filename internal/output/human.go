package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Table writes aligned columns for human-readable CLI output.
type Table struct {
	w *tabwriter.Writer
}

// NewTable creates a table writing to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
}

// Header writes a header row.
func (t *Table) Header(cols ...string) {
	fmt.Fprintln(t.w, strings.Join(cols, "\t"))
}

// Row writes a data row. Cells are formatted per type: timestamps as
// RFC 3339 UTC, floats without trailing zeros.
func (t *Table) Row(cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = formatCell(c)
	}
	fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

// Flush writes the accumulated rows with aligned columns.
func (t *Table) Flush() error {
	return t.w.Flush()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return FormatTime(val)
	case float64:
		return FormatFloat(val)
	default:
		return fmt.Sprint(val)
	}
}

// FormatTime renders a timestamp as RFC 3339 UTC, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatAge renders an age in seconds as a compact duration ("5m30s").
func FormatAge(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

// Truncate cuts s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 3 {
		max = 3
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
