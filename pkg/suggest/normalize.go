package suggest

import (
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the shortest trimmed query that produces a cache key.
// Anything below it clears the dropdown without touching cache or network.
const MinQueryLength = 2

// NormalizeQuery trims the raw input buffer into a cache key.
// No case folding is applied: "Shoe" and "shoe" are distinct keys.
func NormalizeQuery(raw string) (string, bool) {
	key := strings.TrimSpace(raw)
	if utf8.RuneCountInString(key) < MinQueryLength {
		return "", false
	}
	return key, true
}
