package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

const pushshiftURL = "https://api.pushshift.io"

// PushshiftSource searches the historical Reddit archive. Results are
// already filtered by phrase and time range upstream, capped by size.
type PushshiftSource struct {
	baseURL     string
	accessToken string
	client      *resty.Client
}

var _ Source = (*PushshiftSource)(nil)

type pushshiftResponse struct {
	Data []json.RawMessage `json:"data"`
}

type pushshiftSubmission struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Subreddit string  `json:"subreddit"`
	Permalink string  `json:"permalink"`
	FullLink  string  `json:"full_link"`
	Created   float64 `json:"created_utc"`
}

// NewPushshiftSource creates an archive source. baseURL may be empty for the
// public endpoint; accessToken is optional.
func NewPushshiftSource(baseURL, accessToken string) *PushshiftSource {
	if baseURL == "" {
		baseURL = pushshiftURL
	}
	return &PushshiftSource{
		baseURL:     baseURL,
		accessToken: accessToken,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "reddit-mentions-listener/1.0"),
	}
}

func (p *PushshiftSource) GetName() string {
	return "pushshift"
}

func (p *PushshiftSource) IsEnabled() bool {
	return true
}

// Search queries the submission archive between the window edges
func (p *PushshiftSource) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.RawItem, error) {
	params := map[string]string{
		"q":    criteria.Phrase,
		"sort": "desc",
		"size": strconv.Itoa(maxItems(criteria)),
	}
	// after/before are exclusive upstream, the window is inclusive
	if !criteria.WindowStart.IsZero() {
		params["after"] = strconv.FormatInt(criteria.WindowStart.Unix()-1, 10)
	}
	if !criteria.WindowEnd.IsZero() {
		params["before"] = strconv.FormatInt(criteria.WindowEnd.Unix()+1, 10)
	}
	if criteria.Subreddit != "" {
		params["subreddit"] = criteria.Subreddit
	}

	req := p.client.R().SetContext(ctx).SetQueryParams(params)
	if p.accessToken != "" {
		req.SetAuthToken(p.accessToken)
	}

	resp, err := req.Get(p.baseURL + "/reddit/search/submission/")
	if err != nil {
		return nil, transportError(p.GetName(), err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusError(p.GetName(), resp.StatusCode(), resp.Body())
	}

	var searchResp pushshiftResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, newFetchError(p.GetName(), KindMalformed, fmt.Errorf("decode search response: %w", err))
	}

	submissions := decodeEach[pushshiftSubmission](p.GetName(), searchResp.Data)
	items := make([]models.RawItem, 0, len(submissions))
	for _, sub := range submissions {
		permalink := sub.Permalink
		if permalink == "" {
			permalink = sub.FullLink
		}
		items = append(items, models.RawItem{
			ID:        sub.ID,
			Title:     sub.Title,
			Body:      cleanText(sub.Selftext),
			CreatedAt: timestamp(sub.Created),
			Subreddit: sub.Subreddit,
			Permalink: permalink,
		})
	}

	logrus.WithFields(logrus.Fields{
		"phrase":    criteria.Phrase,
		"subreddit": criteria.Subreddit,
		"items":     len(items),
	}).Info("Fetched archive submissions")

	return deduplicateItems(items), nil
}
