package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate turns a display name into a lower-case, hyphenated identifier.
// Accents are folded to ASCII; letters outside the Latin alphabet are
// dropped, so an Arabic-only name yields "".
//
// Examples:
//   - "Dragon Cars" → "dragon-cars"
//   - "Épées & Lames" → "epees-lames"
//   - "  Pets!! " → "pets"
func Generate(name string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	s := strings.ToLower(strings.TrimSpace(folded))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
