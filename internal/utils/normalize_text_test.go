package utils

import "testing"

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		raw, fallback, want string
	}{
		{"TRIP-0001", "x", "TRIP-0001"},
		{"  A  B ", "x", "A-B"},
		{"A/B#C", "x", "ABC"},
		{"***", "TRIP-0003", "TRIP-0003"},
		{"", "TRIP-0001", "TRIP-0001"},
	}
	for _, tt := range tests {
		if got := SanitizeIdentifier(tt.raw, tt.fallback); got != tt.want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatTripID(t *testing.T) {
	tests := map[int]string{1: "TRIP-0001", 42: "TRIP-0042", 12345: "TRIP-12345", 0: "TRIP-0001"}
	for in, want := range tests {
		if got := FormatTripID(in); got != want {
			t.Errorf("FormatTripID(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTripNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"TRIP-0007", 7, true},
		{"job 12 of 40", 12, true},
		{"manual", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := TripNumber(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("TripNumber(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSortStringsIgnoresCase(t *testing.T) {
	values := []string{"zeta", "Alpha", "beta"}
	SortStrings(values)
	if values[0] != "Alpha" || values[1] != "beta" || values[2] != "zeta" {
		t.Fatalf("SortStrings = %v", values)
	}
}
