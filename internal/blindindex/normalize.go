package blindindex

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer maps a plaintext to the canonical form that gets hashed.
// The same normalizer must be used when writing an index and when searching.
type Normalizer func(string) string

var lower = cases.Lower(language.Und)

// NormalizePhone reduces a phone number to "+<digits>". Compatibility
// decomposition first folds full-width and other digit variants to ASCII.
// Input without digits normalizes to "".
func NormalizePhone(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.WriteByte('+')
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 {
		return ""
	}
	return b.String()
}

// NormalizeText strips diacritics, lowercases and drops everything that is
// not a letter or a decimal digit:
//
//	NFKD -> remove Mn -> NFC -> lower -> keep L* and Nd
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	folded = lower.String(folded)

	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.Is(unicode.Nd, r) {
			return r
		}
		return -1
	}, folded)
}

// NormalizeNone keeps the value as is.
func NormalizeNone(s string) string { return s }
