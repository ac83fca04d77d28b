package registry

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// space also covers the separators RE2's \s leaves out: vertical tab, the
// ASCII information separators, NEL and Unicode spaces.
const space = `\s\v\x1c-\x1f\x85\p{Z}`

var (
	asciiDisallowed   = regexp.MustCompile(`[^\w` + space + `-]`)
	unicodeDisallowed = regexp.MustCompile(`[^\p{L}\p{N}_` + space + `-]`)
	separatorRuns     = regexp.MustCompile(`[-` + space + `]+`)
)

// Slugify converts value into a filesystem and URL safe name.
//
// Unless allowUnicode is set, the value is decomposed and folded to ASCII.
// Characters that are not letters, digits, underscores, whitespace or hyphens
// are dropped, the rest is lowercased, runs of whitespace and hyphens collapse
// into a single hyphen, and leading or trailing hyphens and underscores are
// stripped. Slugify(Slugify(s)) == Slugify(s).
func Slugify(value string, allowUnicode bool) string {
	disallowed := asciiDisallowed
	if allowUnicode {
		value = norm.NFKC.String(value)
		disallowed = unicodeDisallowed
	} else {
		value = toASCII(norm.NFKD.String(value))
	}

	value = disallowed.ReplaceAllString(strings.ToLower(value), "")
	value = separatorRuns.ReplaceAllString(value, "-")
	return strings.Trim(value, "-_")
}

// toASCII drops every rune outside the ASCII range, which after NFKD
// decomposition removes combining accents and leaves the base letters.
func toASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
