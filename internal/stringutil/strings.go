// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lowercases s with full Unicode case mapping and trims
// surrounding whitespace. Both chat messages and trigger phrases go through
// it, so a message equal to a trigger up to case and padding compares equal.
//
// cases.Caser is not safe for concurrent use, so a new one is made per call.
func Normalize(s string) string {
	return strings.TrimSpace(cases.Lower(language.Und).String(s))
}

// FullProcess replaces every rune that is not a letter or digit with a
// space, lowercases, and trims the result.
//
// Example:
//
//	FullProcess("What's your name?") returns "what s your name"
func FullProcess(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return Normalize(mapped)
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return len([]rune(s))
}
