package llm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxWordLen is the longest word, in runes, that may be posted.
const MaxWordLen = 20

// Sanitize reduces raw model output to a single postable word: the first
// whitespace-separated token with accents stripped, lower-cased, and every
// character that is not a letter or digit removed. ok is false when nothing
// is left or the result exceeds MaxWordLen.
func Sanitize(raw string) (string, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", false
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, fields[0])
	if err != nil {
		folded = fields[0]
	}

	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(folded) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	if n == 0 || n > MaxWordLen {
		return "", false
	}
	return b.String(), true
}
