package scrub

import (
	"fmt"
	"unicode/utf8"
)

// truncationReserve is the room kept for the truncation suffix.
const truncationReserve = 80

// Truncate caps s at maxChars runes. An over-cap string keeps a prefix and
// ends with "... (truncated, len=N)" where N is the original rune count.
// A string within the cap is returned unchanged, so Truncate is idempotent.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= maxChars {
		return s
	}
	suffix := truncationSuffix(total)
	keep := keepChars(maxChars, utf8.RuneCountInString(suffix))
	if keep < 0 {
		return cutRunes(s, maxChars)
	}
	return cutRunes(s, keep) + suffix
}

func truncationSuffix(total int) string {
	return fmt.Sprintf("... (truncated, len=%d)", total)
}

// keepChars returns how many runes of the original survive, or -1 when not
// even the suffix fits.
func keepChars(maxChars, suffixLen int) int {
	if suffixLen > maxChars {
		return -1
	}
	keep := maxChars - truncationReserve
	if keep < 0 {
		keep = 0
	}
	return keep
}

func cutRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
