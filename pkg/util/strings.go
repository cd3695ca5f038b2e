package util

import "strings"

// ParseFlag interprets the usual HTML-form and CLI spellings of a boolean.
// Anything not recognised as true is false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes", "y":
		return true
	}
	return false
}

// FormatFlag renders a boolean the way stored rows carry it
func FormatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
