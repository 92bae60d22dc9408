// Package extractor turns fetched Reddit items into scored mentions.
package extractor

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/azure/reddit-mentions-listener/internal/models"
	"github.com/azure/reddit-mentions-listener/internal/sentiment"
)

const (
	// DisplayLength is the number of characters kept in Mention.Text
	DisplayLength = 300
	ellipsis      = "..."
	redditBaseURL = "https://www.reddit.com"
)

// Options tunes how items are filtered
type Options struct {
	// IndependentCommentWindow checks comments against the window on their
	// own timestamps even when the parent submission is outside it. When
	// false, comments are only considered under an in-window parent (and
	// still need an in-window timestamp themselves).
	IndependentCommentWindow bool
}

// Result is the output of one extraction pass.
// Texts holds the untruncated text of each mention, index-aligned with
// Mentions.
type Result struct {
	Mentions      []models.Mention `json:"mentions"`
	Texts         []string         `json:"-"`
	ItemsScanned  int              `json:"items_scanned"`
	MentionsFound int              `json:"mentions_found"`
}

// Extract matches criteria.Phrase against every title, body and comment in
// items and scores each match with scorer. It never fails.
func Extract(items []models.RawItem, criteria models.SearchCriteria, scorer sentiment.Scorer, opts Options) Result {
	result, _ := ExtractContext(context.Background(), items, criteria, scorer, opts)
	return result
}

// ExtractContext is Extract with cancellation checked between top-level items
// and between comments. On cancellation the mentions gathered so far are
// returned together with ctx.Err().
func ExtractContext(ctx context.Context, items []models.RawItem, criteria models.SearchCriteria, scorer sentiment.Scorer, opts Options) (Result, error) {
	matcher := NewMatcher(criteria.Phrase)
	result := Result{Mentions: []models.Mention{}, Texts: []string{}}

	for _, item := range items {
		if criteria.MaxItems > 0 && result.ItemsScanned >= criteria.MaxItems {
			break
		}
		if err := ctx.Err(); err != nil {
			result.MentionsFound = len(result.Mentions)
			return result, err
		}
		result.ItemsScanned++

		parentInWindow := criteria.InWindow(item.CreatedAt)
		if parentInWindow {
			if item.Title != "" && matcher.Match(item.Title) {
				result.add(newMention(models.SourceTitle, item.Title, item, item.Permalink, scorer), item.Title)
			}
			if item.Body != "" && matcher.Match(item.Body) {
				result.add(newMention(models.SourceBody, item.Body, item, item.Permalink, scorer), item.Body)
			}
		}

		if !parentInWindow && !opts.IndependentCommentWindow {
			if len(item.Children) > 0 {
				logrus.WithFields(logrus.Fields{
					"item_id":  item.ID,
					"comments": len(item.Children),
				}).Debug("Skipping comments of out-of-window submission")
			}
			continue
		}

		for _, comment := range item.Children {
			if err := ctx.Err(); err != nil {
				result.MentionsFound = len(result.Mentions)
				return result, err
			}
			if !criteria.InWindow(comment.CreatedAt) {
				continue
			}
			if comment.Body == "" || !matcher.Match(comment.Body) {
				continue
			}

			url := comment.Permalink
			if url == "" {
				url = item.Permalink
			}
			if comment.Subreddit == "" {
				comment.Subreddit = item.Subreddit
			}
			result.add(newMention(models.SourceComment, comment.Body, comment, url, scorer), comment.Body)
		}
	}

	result.MentionsFound = len(result.Mentions)
	return result, nil
}

func (r *Result) add(mention models.Mention, text string) {
	r.Mentions = append(r.Mentions, mention)
	r.Texts = append(r.Texts, text)
}

func newMention(sourceType models.SourceType, text string, origin models.RawItem, permalink string, scorer sentiment.Scorer) models.Mention {
	return models.Mention{
		SourceType:     sourceType,
		Text:           Truncate(text, DisplayLength),
		SentimentScore: scorer.Score(text),
		Subreddit:      origin.Subreddit,
		CreatedAt:      origin.CreatedAt,
		URL:            PermalinkURL(permalink),
	}
}

// PermalinkURL turns a relative Reddit permalink into a display URL
func PermalinkURL(permalink string) string {
	switch {
	case permalink == "":
		return ""
	case strings.HasPrefix(permalink, "http://"), strings.HasPrefix(permalink, "https://"):
		return permalink
	case strings.HasPrefix(permalink, "/"):
		return redditBaseURL + permalink
	default:
		return redditBaseURL + "/" + permalink
	}
}

// Truncate shortens text to limit characters and appends an ellipsis when
// anything was cut
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + ellipsis
}
