package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf)
	table.Header("KEY", "NAME", "ISSUES")
	table.Row("ENG", "Engineering", 42)
	table.Row("OPS", "Ops", 3)
	if err := table.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "ENG ") {
		t.Errorf("row = %q, want ENG prefix", lines[1])
	}
	// Columns line up when every NAME cell starts at the same offset.
	if strings.Index(lines[1], "Engineering") != strings.Index(lines[0], "NAME") {
		t.Errorf("columns misaligned:\n%s", buf.String())
	}
	if !strings.HasSuffix(lines[2], "3") {
		t.Errorf("row = %q, want trailing count", lines[2])
	}
}

func TestTableFormatsCells(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf)
	table.Row("id", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 1.5, nil)
	if err := table.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "2025-03-01T10:00:00Z") {
		t.Errorf("output %q missing RFC 3339 time", got)
	}
	if !strings.Contains(got, "1.5") {
		t.Errorf("output %q missing float", got)
	}
}

func TestFormatTime(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"zero time", time.Time{}, ""},
		{"utc", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), "2025-03-01T10:00:00Z"},
		{"converts to utc", time.Date(2025, 3, 1, 5, 0, 0, 0, est), "2025-03-01T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTime(tt.in); got != tt.want {
				t.Errorf("FormatTime = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{42, "42s"},
		{330, "5m30s"},
		{3661, "1h1m1s"},
	}

	for _, tt := range tests {
		if got := FormatAge(tt.seconds); got != tt.want {
			t.Errorf("FormatAge(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten..", 13, "exactly ten.."},
		{"a very long issue title here", 10, "a very ..."},
		{"ab", 1, "ab"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
