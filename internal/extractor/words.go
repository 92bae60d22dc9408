package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

// DefaultTopWords is the size of the word-frequency table
const DefaultTopWords = 10

const minWordLength = 3

var alphaWord = regexp.MustCompile(`[a-z]+`)

// TopWords counts lower-case alphabetic words of at least three letters
// across texts, ignoring stopwords and the words of the query phrase, and
// returns the n most frequent. Ties are ordered alphabetically.
func TopWords(texts []string, phrase string, n int) []models.WordCount {
	if n <= 0 {
		n = DefaultTopWords
	}

	excluded := make(map[string]bool)
	for _, w := range alphaWord.FindAllString(models.NormalizePhrase(phrase), -1) {
		excluded[w] = true
	}

	counts := make(map[string]int)
	for _, text := range texts {
		for _, w := range alphaWord.FindAllString(strings.ToLower(text), -1) {
			if len(w) < minWordLength || stopwords[w] || excluded[w] {
				continue
			}
			counts[w]++
		}
	}

	words := make([]models.WordCount, 0, len(counts))
	for w, c := range counts {
		words = append(words, models.WordCount{Word: w, Count: c})
	}

	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}
