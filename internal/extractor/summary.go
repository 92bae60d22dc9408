package extractor

import (
	"github.com/azure/reddit-mentions-listener/internal/models"
	"github.com/azure/reddit-mentions-listener/internal/sentiment"
)

// Summarize averages the sentiment of mentions. HasData is false for an
// empty slice so callers can show "no data" instead of a number.
// The label breakdown is only filled when labeler is non-nil, because label
// cutoffs belong to a specific scorer.
func Summarize(mentions []models.Mention, labeler sentiment.Labeler) models.Summary {
	summary := models.Summary{MentionCount: len(mentions)}
	if len(mentions) == 0 {
		return summary
	}

	var total float64
	for _, m := range mentions {
		total += m.SentimentScore
	}
	summary.AverageSentiment = total / float64(len(mentions))
	summary.HasData = true

	if labeler != nil {
		summary.Labels = map[models.Label]int{
			models.LabelPositive: 0,
			models.LabelNeutral:  0,
			models.LabelNegative: 0,
		}
		for _, m := range mentions {
			summary.Labels[labeler.Label(m.SentimentScore)]++
		}
	}

	return summary
}

// LabelerFor returns the scorer's Labeler, or nil when it has no calibrated
// cutoffs
func LabelerFor(scorer sentiment.Scorer) sentiment.Labeler {
	if l, ok := scorer.(sentiment.Labeler); ok {
		return l
	}
	return nil
}
