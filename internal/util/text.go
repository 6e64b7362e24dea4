package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeIdentifier trims whitespace around an identifier before lookup.
// Identifiers are compared as exact strings, leading zeros included.
func NormalizeIdentifier(input string) string {
	return strings.TrimSpace(input)
}

// NormalizeHeaderKey folds a spreadsheet column header for case-insensitive
// comparison.
func NormalizeHeaderKey(input string) string {
	return strings.ToLower(NormalizeSpaces(input))
}

func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
