// Banned-substring matching for chat message text.
package keyword

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Built-in banned substrings: "advertisement", "spam", "malicious link".
var DefaultBannedSubstrings = []string{"广告", "垃圾", "恶意链接"}

// Lower-cases text, and folds away combining marks (so "Spåm" and "spam" compare equal).
func Normalize(text string) string {
	// this function needs to be re-defined in every function call to prevent a race condition
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	lower := strings.ToLower(text)
	out, _, err := transform.String(normFunc, lower)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return lower
	}
	return out
}

// Checks text against a fixed list of banned substrings. Safe for concurrent use; holds no mutable state after construction.
type Matcher struct {
	raw  []string
	norm []string
	// empty for banned entries with no letters or digits
	slug []string
}

func NewMatcher(banned []string) *Matcher {
	m := &Matcher{
		raw:  make([]string, 0, len(banned)),
		norm: make([]string, 0, len(banned)),
		slug: make([]string, 0, len(banned)),
	}
	for _, w := range banned {
		if w == "" {
			continue
		}
		m.raw = append(m.raw, w)
		m.norm = append(m.norm, Normalize(w))
		m.slug = append(m.slug, Slugify(w))
	}
	return m
}

// Returns the first banned substring found in text. Tries a verbatim match, then normalized text, then the slug form (punctuation and spacing stripped).
func (m *Matcher) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, w := range m.raw {
		if strings.Contains(text, w) {
			return w, true
		}
	}
	n := Normalize(text)
	for i, w := range m.norm {
		if strings.Contains(n, w) {
			return m.raw[i], true
		}
	}
	s := Slugify(text)
	for i, w := range m.slug {
		if w != "" && strings.Contains(s, w) {
			return m.raw[i], true
		}
	}
	return "", false
}

func (m *Matcher) Len() int {
	return len(m.raw)
}
