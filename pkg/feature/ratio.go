package feature

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DigitRatio returns the share of digit characters in s, rounded to two
// decimals. The empty string yields 0.
func DigitRatio(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return round2(float64(digits) / float64(n))
}

// NameEqualsUsername returns 1 if the display name, trimmed and case-folded,
// equals the case-folded username.
func NameEqualsUsername(fullname, username string) int {
	if strings.ToLower(strings.TrimSpace(fullname)) == strings.ToLower(username) {
		return 1
	}
	return 0
}

// WordCount returns the number of whitespace separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// BoolInt maps true to 1 and false to 0.
func BoolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// round2 rounds half to even at two decimals.
func round2(f float64) float64 {
	return math.RoundToEven(f*100) / 100
}
