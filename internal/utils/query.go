// Package utils holds small shared helpers: fs/TOML plumbing for the config
// layer and query/text checks for the CLI surfaces.
package utils

import (
	"fmt"
	"unicode"
)

// IsSearchableQuery reports whether a query is worth sending to the
// recommender. Pure punctuation and single-rune repetition ("!!!", "aaaa")
// waste a round trip; product names with digits or CJK are fine.
func IsSearchableQuery(s string) bool {
	if s == "" {
		return false
	}
	hasWord := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasWord = true
			break
		}
	}
	if !hasWord {
		return false
	}
	return !IsRepetitive(s)
}

// IsRepetitive checks if a string is one rune repeated 3+ times.
func IsRepetitive(s string) bool {
	runes := []rune(s)
	if len(runes) <= 2 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	str := fmt.Sprintf("%d", n)
	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
