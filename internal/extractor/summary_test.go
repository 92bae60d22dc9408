package extractor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/azure/reddit-mentions-listener/internal/models"
	"github.com/azure/reddit-mentions-listener/internal/sentiment"
)

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil, sentiment.NewVaderScorer())

	assert.False(t, summary.HasData)
	assert.Equal(t, 0, summary.MentionCount)
	assert.False(t, math.IsNaN(summary.AverageSentiment))
	assert.Nil(t, summary.Labels)
}

func TestSummarize_Average(t *testing.T) {
	mentions := []models.Mention{
		{SentimentScore: 0.5},
		{SentimentScore: -0.25},
		{SentimentScore: 0.02},
		{SentimentScore: 0.6},
	}

	summary := Summarize(mentions, nil)

	assert.True(t, summary.HasData)
	assert.Equal(t, 4, summary.MentionCount)
	assert.InDelta(t, 0.2175, summary.AverageSentiment, 1e-9)
	assert.Nil(t, summary.Labels)
}

func TestSummarize_Labels(t *testing.T) {
	mentions := []models.Mention{
		{SentimentScore: 0.5},
		{SentimentScore: 0.05},
		{SentimentScore: 0.01},
		{SentimentScore: -0.05},
	}

	summary := Summarize(mentions, sentiment.NewVaderScorer())

	assert.Equal(t, map[models.Label]int{
		models.LabelPositive: 2,
		models.LabelNeutral:  1,
		models.LabelNegative: 1,
	}, summary.Labels)
}

func TestLabelerFor(t *testing.T) {
	assert.NotNil(t, LabelerFor(sentiment.NewVaderScorer()))
	assert.Nil(t, LabelerFor(sentiment.NewPolarityScorer()))
}
