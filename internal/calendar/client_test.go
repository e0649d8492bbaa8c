package calendar

import (
	"testing"
	"time"
)

func TestParseStartLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-09-01T10:00:00+02:00", time.Date(2026, 9, 1, 10, 0, 0, 0, time.FixedZone("", 2*3600))},
		{"2026-09-01T10:00:00", time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)},
		{"2026-09-01T10:00", time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseStart(tt.in)
		if err != nil {
			t.Fatalf("parseStart(%q) error = %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseStart(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseStartRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "tomorrow at noon", "2026-99-99T10:00:00"} {
		if _, err := parseStart(in); err == nil {
			t.Fatalf("parseStart(%q) expected error", in)
		}
	}
}
