package utils

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortStrings sorts values in place using locale-aware, case-insensitive order.
func SortStrings(values []string) {
	collate.New(language.English, collate.IgnoreCase).SortStrings(values)
}

// CompareStrings reports the locale-aware, case-insensitive order of a and b.
func CompareStrings(a, b string) int {
	return collate.New(language.English, collate.IgnoreCase).CompareString(a, b)
}
