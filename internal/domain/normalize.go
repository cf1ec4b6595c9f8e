package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for display names, titles and free text labels.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// FoldName returns the comparison key for a display name: normalized and case folded,
// so "  ana  MARÍA" and "Ana María" match.
func FoldName(s string) string {
	return cases.Fold().String(NormalizeHumanName(s))
}

// Slug lowercases s and replaces every run of non letter/digit runes with a single dash.
// Accents are stripped so the result stays ASCII friendly.
func Slug(s string) string {
	decomposed := norm.NFD.String(FoldName(s))
	var b strings.Builder
	dash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
