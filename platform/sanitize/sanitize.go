// Package sanitize normalizes operator-provided free text before it is stored.
// Text is kept verbatim apart from whitespace and control characters; escaping
// is left to whatever renders it.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Text drops control characters and collapses whitespace runs to a single
// space. Markup-like input such as "<300k" is preserved.
func Text(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(stripped, " "))
}

// Length returns the number of characters (not bytes) in s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
