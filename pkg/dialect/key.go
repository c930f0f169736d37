package dialect

import (
	"strings"
	"unicode"
)

// KeyNormalizer turns the raw account token into an AccountKey candidate.
type KeyNormalizer func(string) string

// KeyPredicate decides whether a normalized key is valid.
type KeyPredicate func(string) bool

var normalizers = map[string]KeyNormalizer{
	"none":   func(s string) string { return s },
	"digits": keepDigits,
	"last4":  lastN(4),
}

var predicates = map[string]KeyPredicate{
	"digits": allOf(unicode.IsDigit),
	"alnum": allOf(func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}),
}

func keepDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// lastN drops separators and keeps the trailing n characters.
func lastN(n int) KeyNormalizer {
	return func(s string) string {
		r := []rune(strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, s))
		if len(r) > n {
			r = r[len(r)-n:]
		}
		return string(r)
	}
}

func allOf(f func(rune) bool) KeyPredicate {
	return func(s string) bool {
		if s == "" {
			return false
		}
		for _, r := range s {
			if !f(r) {
				return false
			}
		}
		return true
	}
}
