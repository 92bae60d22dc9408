package models

import (
	"strings"
	"time"
)

// SourceType identifies which part of an item a mention was found in
type SourceType string

const (
	SourceTitle   SourceType = "Title"
	SourceBody    SourceType = "Body"
	SourceComment SourceType = "Comment"
)

// Label is a three-bucket sentiment classification
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// RawItem is one fetched submission or comment.
// Children holds the comments of a submission and is always one level deep.
// A zero CreatedAt means the source did not supply a timestamp.
type RawItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Subreddit string    `json:"subreddit"`
	Permalink string    `json:"permalink"`
	Children  []RawItem `json:"children,omitempty"`
}

// SearchCriteria holds the parameters of a single query
type SearchCriteria struct {
	Phrase      string    `json:"phrase"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Subreddit   string    `json:"subreddit,omitempty"`
	MaxItems    int       `json:"max_items"`
}

// NewSearchCriteria normalizes the phrase and subreddit of a query
func NewSearchCriteria(phrase, subreddit string, start, end time.Time, maxItems int) SearchCriteria {
	return SearchCriteria{
		Phrase:      NormalizePhrase(phrase),
		WindowStart: start,
		WindowEnd:   end,
		Subreddit:   strings.TrimPrefix(strings.TrimSpace(subreddit), "r/"),
		MaxItems:    maxItems,
	}
}

// NormalizePhrase lower-cases and trims a search phrase
func NormalizePhrase(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}

// InWindow reports whether t lies inside [WindowStart, WindowEnd].
// A missing timestamp is never inside the window.
func (c SearchCriteria) InWindow(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(c.WindowStart) && !t.After(c.WindowEnd)
}

// WindowForDates returns the window covering whole calendar days from start
// to end in loc: midnight of start through the last nanosecond of end.
func WindowForDates(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	windowStart := time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
	windowEnd := time.Date(ey, em, ed+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	return windowStart, windowEnd
}

// Mention is one matched occurrence of the phrase
type Mention struct {
	SourceType     SourceType `json:"source_type"`
	Text           string     `json:"text"`
	SentimentScore float64    `json:"sentiment_score"`
	Subreddit      string     `json:"subreddit"`
	CreatedAt      time.Time  `json:"created_at"`
	URL            string     `json:"url"`
}

// Summary aggregates the sentiment of a set of mentions.
// AverageSentiment is meaningless when HasData is false.
type Summary struct {
	MentionCount     int           `json:"mention_count"`
	AverageSentiment float64       `json:"average_sentiment"`
	HasData          bool          `json:"has_data"`
	Labels           map[Label]int `json:"labels,omitempty"`
}

// WordCount is one entry of the word-frequency table
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Report is what gets stored and sent for a watch run
type Report struct {
	ID           string         `json:"id"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Watch        string         `json:"watch"`
	Scorer       string         `json:"scorer"`
	Criteria     SearchCriteria `json:"criteria"`
	ItemsScanned int            `json:"items_scanned"`
	Mentions     []Mention      `json:"mentions"`
	Summary      Summary        `json:"summary"`
	TopWords     []WordCount    `json:"top_words"`
	CSV          []byte         `json:"-"`
	CSVName      string         `json:"csv_name,omitempty"`
}

// Alert is raised when a watch's average sentiment falls below its threshold
type Alert struct {
	Watch            string    `json:"watch"`
	Phrase           string    `json:"phrase"`
	AverageSentiment float64   `json:"average_sentiment"`
	Threshold        float64   `json:"threshold"`
	MentionCount     int       `json:"mention_count"`
	ReportID         string    `json:"report_id"`
	CreatedAt        time.Time `json:"created_at"`
}
