package sentiment

import (
	"github.com/jonreiter/govader"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

// Compound score thresholds published with VADER
const (
	vaderPositiveThreshold = 0.05
	vaderNegativeThreshold = -0.05
)

// VaderScorer rates text with the VADER compound score, which is tuned for
// social media text (negation, punctuation emphasis, capitalisation).
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var (
	_ Scorer  = (*VaderScorer)(nil)
	_ Labeler = (*VaderScorer)(nil)
)

// NewVaderScorer loads the VADER lexicon
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Name() string {
	return ScorerVader
}

// Score returns the compound score of the text
func (v *VaderScorer) Score(text string) float64 {
	plain := PlainText(text)
	if plain == "" {
		return 0
	}
	return clamp(v.analyzer.PolarityScores(plain).Compound)
}

// Label applies the standard compound-score cutoffs
func (v *VaderScorer) Label(score float64) models.Label {
	switch {
	case score >= vaderPositiveThreshold:
		return models.LabelPositive
	case score <= vaderNegativeThreshold:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}
