package sentiment

import (
	"regexp"
	"strings"
)

// PolarityScorer averages per-word polarities from a fixed lexicon.
// Intensifiers scale the next rated word and negations flip it at half
// strength. It does not implement Labeler: its scores cluster closer to zero
// than VADER's and the compound cutoffs do not apply.
type PolarityScorer struct {
	lexicon      map[string]float64
	intensifiers map[string]float64
	negations    map[string]bool
}

var _ Scorer = (*PolarityScorer)(nil)

var polarityToken = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)

const negationFactor = -0.5

// NewPolarityScorer builds a scorer over the bundled lexicon
func NewPolarityScorer() *PolarityScorer {
	return &PolarityScorer{
		lexicon:      polarityLexicon,
		intensifiers: polarityIntensifiers,
		negations:    polarityNegations,
	}
}

func (p *PolarityScorer) Name() string {
	return ScorerPolarity
}

// Score returns the mean polarity of the rated words, 0 when none are rated
func (p *PolarityScorer) Score(text string) float64 {
	tokens := polarityToken.FindAllString(strings.ToLower(PlainText(text)), -1)

	var sum float64
	rated := 0
	multiplier := 1.0
	negated := false

	for _, tok := range tokens {
		if p.negations[tok] {
			negated = true
			continue
		}
		if m, ok := p.intensifiers[tok]; ok {
			multiplier *= m
			continue
		}

		polarity, ok := p.lexicon[tok]
		if !ok {
			// modifiers only reach the word right after them
			multiplier = 1.0
			negated = false
			continue
		}

		polarity = clamp(polarity * multiplier)
		if negated {
			polarity *= negationFactor
		}
		sum += polarity
		rated++

		multiplier = 1.0
		negated = false
	}

	if rated == 0 {
		return 0
	}
	return clamp(sum / float64(rated))
}
