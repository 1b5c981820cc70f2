package productivity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize turns free text into a comparison key: Unicode NFKC, surrounding
// whitespace trimmed, case folded. Blank input yields "". NFKC folds the
// full-width letters and ligatures spreadsheets often carry onto their plain
// forms.
//
// Keys are for matching only. Both sides of every comparison must go through
// Normalize, master data and staged text alike.
func Normalize(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" {
		return ""
	}
	// A Caser carries state, so each call gets its own.
	return norm.NFKC.String(cases.Fold().String(s))
}

// hasAnyPrefix reports whether key starts with one of the normalized prefixes.
func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
