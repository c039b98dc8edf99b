// Package fsname produces filesystem-safe, length-bounded filenames from
// arbitrary video titles.
package fsname

import (
	"strings"
	"unicode/utf8"
)

// MaxNameBytes is the maximum path-component length, in bytes, shared by
// macOS, Linux and NTFS filesystems.
const MaxNameBytes = 255

// fallbackBase replaces titles that sanitize down to nothing.
const fallbackBase = "video"

// reserved are characters rejected by at least one target filesystem.
// Path separators are included so a title can never escape its directory.
const reserved = `/\<>:"|?*`

// Sanitize returns a safe filename for rawTitle with the given extension
// (including the dot), bounded to MaxNameBytes bytes.
func Sanitize(rawTitle, extension string) string {
	return SanitizeN(rawTitle, extension, MaxNameBytes)
}

// SanitizeN is Sanitize with an explicit byte limit. The result is non-empty,
// free of filesystem-illegal characters, at most maxBytes bytes, and ends
// with extension. Truncation counts bytes, not runes, and always cuts on a
// rune boundary. SanitizeN is idempotent on its own output.
func SanitizeN(rawTitle, extension string, maxBytes int) string {
	title := rawTitle

	// A title already carrying the extension keeps a single copy.
	if extension != "" && len(title) >= len(extension) &&
		strings.EqualFold(title[len(title)-len(extension):], extension) {
		title = title[:len(title)-len(extension)]
	}

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r < 0x20 || r == 0x7f || r == utf8.RuneError:
			// Control characters and invalid encoding are dropped outright.
		case strings.ContainsRune(reserved, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")
	cleaned = strings.TrimRight(cleaned, ". ")

	budget := maxBytes - len(extension)
	if budget < 1 {
		budget = 1
	}
	cleaned = truncate(cleaned, budget)
	// Truncation can expose a trailing dot or space again.
	cleaned = strings.TrimRight(cleaned, ". ")

	if cleaned == "" {
		cleaned = truncate(fallbackBase, budget)
		if cleaned == "" {
			cleaned = fallbackBase[:1]
		}
	}

	return cleaned + extension
}

// truncate returns the longest prefix of s that fits in maxBytes without
// splitting a UTF-8 sequence.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	i := maxBytes
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i]
}
