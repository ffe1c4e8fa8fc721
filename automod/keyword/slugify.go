package keyword

import (
	"regexp"
)

var nonSlugChars = regexp.MustCompile(`[^\pL\pN]+`)

// Normalized text with every non-letter, non-digit character removed, so that "广 告" or "s.p.a.m" collapse to the banned form.
func Slugify(orig string) string {
	return Normalize(nonSlugChars.ReplaceAllString(orig, ""))
}
