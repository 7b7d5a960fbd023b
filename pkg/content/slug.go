package content

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// Slugify lowercases s and replaces each space with a dash. Letters,
// digits, marks, dashes and underscores are kept; everything else is
// dropped. Runs of dashes are not collapsed, so "a - b" becomes "a---b"
// and matches the page URLs the site generator builds.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range lower.String(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
			b.WriteRune(r)
		case r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// SlugFromPath derives a slug from a collection-relative file path:
// extension stripped, each segment slugified, trailing "index" removed.
func SlugFromPath(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))

	var segments []string
	for _, seg := range strings.Split(rel, "/") {
		if s := Slugify(seg); s != "" {
			segments = append(segments, s)
		}
	}

	if n := len(segments); n > 1 && segments[n-1] == "index" {
		segments = segments[:n-1]
	}
	return strings.Join(segments, "/")
}
