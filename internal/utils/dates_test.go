package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{" 2024-03-05 ", "2024-03-05", true},
		{"2024-03-05T14:30", "2024-03-05", true},
		{"2024-03-05 14:30:00", "2024-03-05", true},
		{"2024-03-05T23:30:00Z", "2024-03-05", true},
		{"05/03/2024", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got := DateString(tt.raw, time.UTC)
		if got != tt.want {
			t.Errorf("DateString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
		if _, ok := ParseDate(tt.raw, time.UTC); ok != tt.wantOK {
			t.Errorf("ParseDate(%q) ok = %v", tt.raw, ok)
		}
	}
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	if got := StartOfDay(ts); !got.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartOfDay = %v", got)
	}
	if got := EndOfDay(ts); !got.Equal(time.Date(2024, time.March, 5, 23, 59, 59, int(999*time.Millisecond), time.UTC)) {
		t.Errorf("EndOfDay = %v", got)
	}
}
