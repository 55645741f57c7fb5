package utils

import (
	"regexp"
	"strings"
)

// --- Filename Sanitization ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
var consecutiveUnderscores = regexp.MustCompile(`_+`)                  // Pattern to replace multiple underscores with one
const maxFilenameLength = 50                                           // Matches the event-name cap used for export filenames

// SanitizeFilename cleans a string to be safe for use as a filename component.
// Event names come straight from page titles, so anything can show up here.
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_ ")

	// Limit length by runes so multi-byte event names truncate cleanly
	if runes := []rune(sanitized); len(runes) > maxFilenameLength {
		sanitized = string(runes[:maxFilenameLength])
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" {
		sanitized = "unknown_event"
	}
	return sanitized
}

// StripNUL removes NUL bytes that occasionally corrupt ledger files written
// by interrupted runs.
func StripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
