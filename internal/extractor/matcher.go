package extractor

import (
	"regexp"
	"strings"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

// wordRune is anything that may continue a word; boundaries are everything else
const wordRune = `\p{L}\p{N}_`

// Matcher tests text for a whole-word, case-insensitive phrase
type Matcher struct {
	phrase string
	re     *regexp.Regexp
}

// NewMatcher compiles phrase into a word-boundary matcher.
// An empty phrase yields a matcher that never matches.
func NewMatcher(phrase string) *Matcher {
	phrase = models.NormalizePhrase(phrase)
	m := &Matcher{phrase: phrase}
	if phrase == "" {
		return m
	}

	words := strings.Fields(phrase)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}

	pattern := `(?:^|[^` + wordRune + `])` +
		strings.Join(quoted, `\s+`) +
		`(?:$|[^` + wordRune + `])`
	m.re = regexp.MustCompile(pattern)
	return m
}

// Phrase returns the normalized phrase
func (m *Matcher) Phrase() string {
	return m.phrase
}

// Match reports whether text contains the phrase bounded by non-word
// characters or the ends of the string
func (m *Matcher) Match(text string) bool {
	if m.re == nil || text == "" {
		return false
	}
	return m.re.MatchString(strings.ToLower(text))
}
