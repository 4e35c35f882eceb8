// Package redact strips credentials from text before it is logged or sent
// back to a chat room.
//
// Redaction is best-effort and string based. It is not a substitute for
// keeping secrets out of log call-sites in the first place.
package redact

import (
	"strings"
	"unicode/utf8"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Mask returns a display form of a credential that reveals at most its last
// four characters, e.g. "***c0ff". Credentials of eight characters or fewer
// are fully hidden, and an empty value is reported as "(unset)".
func Mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	n := utf8.RuneCountInString(secret)
	if n <= 8 {
		return "***"
	}
	r := []rune(secret)
	return "***" + string(r[n-4:])
}
