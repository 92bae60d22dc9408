// Package sentiment provides the interchangeable scorers used to rate mentions.
package sentiment

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

// Scorer maps text to a polarity in [-1, 1]
type Scorer interface {
	Name() string
	Score(text string) float64
}

// Labeler buckets a score into positive/negative/neutral.
// Only scorers whose output has calibrated thresholds implement it.
type Labeler interface {
	Label(score float64) models.Label
}

const (
	ScorerVader    = "vader"
	ScorerPolarity = "polarity"
)

// New builds the scorer registered under name
func New(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ScorerVader, "":
		return NewVaderScorer(), nil
	case ScorerPolarity:
		return NewPolarityScorer(), nil
	default:
		return nil, fmt.Errorf("unknown sentiment scorer %q (expected %q or %q)", name, ScorerVader, ScorerPolarity)
	}
}

var (
	markdownLink = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+)\)`)
	bareURL      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
)

// ltPlaceholder stands in for '<' while markdown is rendered so that
// emoticons like <3 and bracketed words are not mistaken for HTML
const ltPlaceholder = "\uE000"

// PlainText flattens Reddit markdown into plain words and drops links.
// Only the markup produced by the renderer is removed.
func PlainText(input string) string {
	input = markdownLink.ReplaceAllString(input, "$1")
	input = strings.ReplaceAll(input, "<", ltPlaceholder)
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions(), blackfriday.WithRenderer(newPlainRenderer()))
	text := htmlTag.ReplaceAllString(string(rendered), " ")
	text = bareURL.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, ltPlaceholder, "<")
	return strings.Join(strings.Fields(text), " ")
}

// newPlainRenderer leaves smartypants off so apostrophes in negations survive.
// Renderers carry per-document state, so each call gets its own.
func newPlainRenderer() blackfriday.Renderer {
	return blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.UseXHTML,
	})
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
