package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

func TestTopWords(t *testing.T) {
	texts := []string{
		"The rinse kit is great for camping. Great pressure!",
		"Camping shower vs rinse kit: the kit wins",
		"Is it worth it? Pressure is OK, shower is fine.",
	}

	words := TopWords(texts, "Rinse Kit", 10)

	assert.Equal(t, []models.WordCount{
		{Word: "camping", Count: 2},
		{Word: "great", Count: 2},
		{Word: "pressure", Count: 2},
		{Word: "shower", Count: 2},
		{Word: "fine", Count: 1},
		{Word: "wins", Count: 1},
		{Word: "worth", Count: 1},
	}, words)
}

func TestTopWords_Limit(t *testing.T) {
	texts := []string{"alpha beta gamma delta epsilon zeta theta iota kappa lambda omicron sigma"}

	assert.Len(t, TopWords(texts, "", 10), 10)
	assert.Len(t, TopWords(texts, "", 3), 3)
	// non-positive n falls back to the default table size
	assert.Len(t, TopWords(texts, "", 0), DefaultTopWords)
}

func TestTopWords_Filters(t *testing.T) {
	texts := []string{"It's a 4x4 go-to pick, an ok one: uno dos tres 123 abc"}

	words := TopWords(texts, "", 10)

	var got []string
	for _, w := range words {
		got = append(got, w.Word)
	}
	// short tokens, digits and stopwords are dropped
	assert.ElementsMatch(t, []string{"pick", "uno", "dos", "tres", "abc"}, got)
}

func TestTopWords_Empty(t *testing.T) {
	assert.Empty(t, TopWords(nil, "tent", 10))
}
