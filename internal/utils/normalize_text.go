package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	identifierStrip = regexp.MustCompile(`[^a-zA-Z0-9-]`)
	firstDigitRun   = regexp.MustCompile(`(\d+)`)
)

// NormalizeText trims and lower-cases a value for case-insensitive matching.
func NormalizeText(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeUnitID normalizes a fleet unit identifier for duplicate detection.
func NormalizeUnitID(raw string) string {
	return NormalizeText(raw)
}

// SanitizeIdentifier turns a free-form value into a document number base:
// whitespace runs become hyphens and anything outside [a-zA-Z0-9-] is dropped.
func SanitizeIdentifier(raw, fallback string) string {
	base := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), "-")
	base = identifierStrip.ReplaceAllString(base, "")
	if base == "" {
		return fallback
	}
	return base
}

func FormatTripID(sequence int) string {
	if sequence < 1 {
		sequence = 1
	}
	return fmt.Sprintf("TRIP-%04d", sequence)
}

// TripNumber extracts the first run of digits from a trip identifier.
func TripNumber(tripID string) (int, bool) {
	match := firstDigitRun.FindString(tripID)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}
