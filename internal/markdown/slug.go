package markdown

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Slugify converts heading text into a URL fragment: trimmed, lower-cased,
// whitespace runs joined with "-", punctuation dropped. Letters outside ASCII
// are kept (NFC normalized).
func Slugify(s string) string {
	s = lower.String(norm.NFC.String(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingDash = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.Is(unicode.Mn, r):
			if pendingDash {
				b.WriteByte('-')
				pendingDash = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// uniqueSlug returns slug, or slug-1, slug-2, ... when already used.
// used is updated with the returned value.
func uniqueSlug(slug string, used map[string]bool) string {
	if slug == "" {
		slug = "section"
	}
	candidate := slug
	for i := 1; used[candidate]; i++ {
		candidate = slug + "-" + strconv.Itoa(i)
	}
	used[candidate] = true
	return candidate
}
