package domain

import (
	"strings"
	"unicode"
)

// skipLetters may not start a city name, so they never become the required letter.
const skipLetters = "ьъый"

// NoLetter marks an unconstrained next move.
const NoLetter rune = 0

// Normalize canonicalizes a city name: trimmed, lowercased, single-spaced, with "ё" folded to "е".
// Whitespace-only input yields the empty string.
func Normalize(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	return strings.ReplaceAll(strings.Join(fields, " "), "ё", "е")
}

// EffectiveLastLetter returns the letter the next city must start with.
// Trailing skip letters and non-letters are ignored; ok is false when no eligible letter exists.
func EffectiveLastLetter(word string) (rune, bool) {
	runes := []rune(word)
	for i := len(runes) - 1; i >= 0; i-- {
		r := foldLetter(runes[i])
		if !unicode.IsLetter(r) || strings.ContainsRune(skipLetters, r) {
			continue
		}
		return r, true
	}
	return NoLetter, false
}

// FirstLetter returns the first letter of word after folding.
func FirstLetter(word string) (rune, bool) {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return foldLetter(r), true
		}
	}
	return NoLetter, false
}

func foldLetter(r rune) rune {
	r = unicode.ToLower(r)
	if r == 'ё' {
		return 'е'
	}
	return r
}
