package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

// Header is the fixed column order of an exported mention table
var Header = []string{"Date", "Subreddit", "Mention Type", "Text", "Sentiment", "URL"}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

// WriteCSV writes mentions as CSV in input order, header first
func WriteCSV(w io.Writer, mentions []models.Mention) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i, m := range mentions {
		if err := writer.Write(record(m)); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// CSVBytes renders mentions to an in-memory CSV document
func CSVBytes(mentions []models.Mention) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, mentions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename names an export after its phrase and generation time,
// e.g. mentions-rinse-kit-20240301T090000Z.csv
func Filename(criteria models.SearchCriteria, generatedAt time.Time) string {
	slug := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(criteria.Phrase), "-"), "-")
	if slug == "" {
		slug = "query"
	}
	return fmt.Sprintf("mentions-%s-%s.csv", slug, generatedAt.UTC().Format("20060102T150405Z"))
}

func record(m models.Mention) []string {
	date := ""
	if !m.CreatedAt.IsZero() {
		date = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		date,
		m.Subreddit,
		string(m.SourceType),
		m.Text,
		strconv.FormatFloat(m.SentimentScore, 'f', 4, 64),
		m.URL,
	}
}
