// Package slug turns product names into stable ASCII identifiers.
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

var ligatures = strings.NewReplacer("æ", "ae", "œ", "oe", "ß", "ss", "&", " and ")

// Generate lowercases name, folds accents to their base letters and joins the
// remaining alphanumeric runs with single hyphens. Scripts without a Latin
// form, such as Arabic, are dropped, so callers slug the English name.
//
//	"Crème Brûlée Body Butter" → "creme-brulee-body-butter"
//	"Rose & Oud" → "rose-and-oud"
func Generate(name string) string {
	s := ligatures.Replace(strings.ToLower(strings.TrimSpace(name)))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}
