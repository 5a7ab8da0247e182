// Package slug derives the canonical on-disk identifier for a topic.
// Every artifact the pipeline writes for a topic (story file, asset
// directory, review folder, reject files) is keyed by this value.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Make normalizes a topic string into a lowercase, ASCII-only, URL-safe
// identifier. Diacritics are folded away, "&" becomes "and", and any run
// of other non-alphanumerics collapses into a single hyphen. Make is pure
// and idempotent: Make(Make(s)) == Make(s).
func Make(topic string) string {
	lowered := strings.ToLower(topic)
	lowered = strings.ReplaceAll(lowered, "&", " and ")

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range norm.NFKD.String(lowered) {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark left over from decomposition
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}

	collapsed := collapseHyphens(b.String())
	return strings.Trim(collapsed, "-")
}

func collapseHyphens(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevHyphen := false
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			if prevHyphen {
				continue
			}
			prevHyphen = true
		} else {
			prevHyphen = false
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
