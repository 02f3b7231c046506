// Package lang decides whether a query is English-like and therefore a
// candidate for English→Hindi translation.
package lang

import "unicode"

// Classification is the result of Classify.
type Classification struct {
	EnglishLike bool
}

// Classify reports whether text is English-like. Any Devanagari rune makes
// the text not English-like. Otherwise every rune must be an ASCII letter,
// digit, Unicode whitespace, or one of . , ! ? ' " ( ) -. The empty string is not
// English-like.
func Classify(text string) Classification {
	if text == "" {
		return Classification{}
	}
	if ContainsDevanagari(text) {
		return Classification{}
	}
	for _, r := range text {
		if !allowed(r) {
			return Classification{}
		}
	}
	return Classification{EnglishLike: true}
}

// IsEnglishLike is shorthand for Classify(text).EnglishLike.
func IsEnglishLike(text string) bool {
	return Classify(text).EnglishLike
}

// ContainsDevanagari reports whether any rune lies in U+0900–U+097F.
func ContainsDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	}
	switch r {
	case '.', ',', '!', '?', '\'', '"', '(', ')', '-':
		return true
	}
	return false
}
