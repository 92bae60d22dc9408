package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

const (
	redditAPIURL   = "https://oauth.reddit.com"
	redditTokenURL = "https://www.reddit.com/api/v1/access_token"
	redditPageSize = 100

	// Reddit allows 100 OAuth requests per minute; stay under it
	defaultRequestsPerMinute = 100
	rateSafetyFactor         = 0.95
)

// RedditMode selects which Reddit endpoint supplies candidates
type RedditMode string

const (
	// ModeListing reads the newest submissions and leaves all filtering to
	// the extractor
	ModeListing RedditMode = "listing"
	// ModeSearch asks Reddit's keyword search for candidates
	ModeSearch RedditMode = "search"
)

// RedditOptions configures a RedditSource
type RedditOptions struct {
	ClientID          string
	ClientSecret      string
	UserAgent         string
	Mode              RedditMode
	IncludeComments   bool
	RequestsPerMinute int
	APIBaseURL        string
	TokenURL          string
}

// RedditSource fetches submissions (and optionally their comments) from the
// Reddit OAuth API
type RedditSource struct {
	opts      RedditOptions
	client    *resty.Client
	limiter   *rate.Limiter
	oauth     *clientcredentials.Config
	tokenHTTP *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

var _ Source = (*RedditSource)(nil)

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string            `json:"after"`
		Children []json.RawMessage `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Kind string      `json:"kind"`
	Data redditThing `json:"data"`
}

type redditThing struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Selftext    string          `json:"selftext"`
	Body        string          `json:"body"`
	Subreddit   string          `json:"subreddit"`
	Permalink   string          `json:"permalink"`
	Created     float64         `json:"created_utc"`
	NumComments int             `json:"num_comments"`
	Replies     json.RawMessage `json:"replies"`
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(opts RedditOptions) *RedditSource {
	if opts.Mode == "" {
		opts.Mode = ModeListing
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = defaultRequestsPerMinute
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = redditAPIURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = redditTokenURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "reddit-mentions-listener/1.0"
	}

	perSecond := float64(opts.RequestsPerMinute) / 60.0 * rateSafetyFactor

	oauthConf := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// Reddit rejects token requests without a descriptive User-Agent
	tokenHTTP := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &userAgentTransport{userAgent: opts.UserAgent, base: http.DefaultTransport},
	}

	return &RedditSource{
		opts: opts,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", opts.UserAgent),
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		oauth:     oauthConf,
		tokenHTTP: tokenHTTP,
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.opts.ClientID != "" && r.opts.ClientSecret != ""
}

// Search fetches up to criteria.MaxItems submissions and, when comments are
// enabled, expands each submission's comment tree into one level of children
func (r *RedditSource) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.RawItem, error) {
	if !r.IsEnabled() {
		return nil, newFetchError(r.GetName(), KindAuth, errors.New("client id and secret are not configured"))
	}

	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	posts, err := r.fetchSubmissions(ctx, token, criteria)
	if err != nil {
		return nil, err
	}

	items := make([]models.RawItem, 0, len(posts))
	for _, post := range posts {
		item := post.toRawItem()

		if r.opts.IncludeComments && post.NumComments > 0 {
			comments, err := r.fetchComments(ctx, token, post)
			if err != nil {
				return nil, err
			}
			item.Children = comments
		}

		items = append(items, item)
	}

	logrus.WithFields(logrus.Fields{
		"mode":      r.opts.Mode,
		"subreddit": criteria.Subreddit,
		"items":     len(items),
	}).Info("Fetched Reddit submissions")

	return deduplicateItems(items), nil
}

// accessToken returns the cached app token, fetching a new one under ctx when
// it is missing or about to expire
func (r *RedditSource) accessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transportError(r.GetName(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token.Valid() {
		return r.token.AccessToken, nil
	}

	tok, err := r.oauth.Token(context.WithValue(ctx, oauth2.HTTPClient, r.tokenHTTP))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", transportError(r.GetName(), fmt.Errorf("token request: %w (%v)", ctxErr, err))
		}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", statusError(r.GetName(), retrieveErr.Response.StatusCode, retrieveErr.Body)
		}
		return "", newFetchError(r.GetName(), KindAuth, fmt.Errorf("token request failed: %w", err))
	}

	r.token = tok
	return tok.AccessToken, nil
}

func (r *RedditSource) endpoint(criteria models.SearchCriteria) (string, map[string]string) {
	params := map[string]string{"raw_json": "1"}

	if r.opts.Mode == ModeSearch {
		params["q"] = criteria.Phrase
		params["sort"] = "new"
		params["t"] = "all"
		if criteria.Subreddit == "" {
			return "/search.json", params
		}
		params["restrict_sr"] = "1"
		return fmt.Sprintf("/r/%s/search.json", criteria.Subreddit), params
	}

	subreddit := criteria.Subreddit
	if subreddit == "" {
		subreddit = "all"
	}
	return fmt.Sprintf("/r/%s/new.json", subreddit), params
}

func (r *RedditSource) fetchSubmissions(ctx context.Context, token string, criteria models.SearchCriteria) ([]redditThing, error) {
	limit := maxItems(criteria)
	path, base := r.endpoint(criteria)

	var posts []redditThing
	after := ""

	for len(posts) < limit {
		params := make(map[string]string, len(base)+2)
		for k, v := range base {
			params[k] = v
		}
		params["limit"] = strconv.Itoa(min(redditPageSize, limit-len(posts)))
		if after != "" {
			params["after"] = after
		}

		var listing redditListing
		if err := r.get(ctx, token, path, params, &listing); err != nil {
			return nil, err
		}

		for _, child := range decodeEach[redditChild](r.GetName(), listing.Data.Children) {
			if child.Kind != "" && child.Kind != "t3" {
				continue
			}
			posts = append(posts, child.Data)
		}

		if listing.Data.After == "" || len(listing.Data.Children) == 0 {
			break
		}
		// the listing is newest first, so older pages cannot fall in the window
		if r.opts.Mode == ModeListing && len(posts) > 0 && !criteria.WindowStart.IsZero() {
			if oldest := timestamp(posts[len(posts)-1].Created); !oldest.IsZero() && oldest.Before(criteria.WindowStart) {
				break
			}
		}
		after = listing.Data.After
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (r *RedditSource) fetchComments(ctx context.Context, token string, post redditThing) ([]models.RawItem, error) {
	// the response is [submission listing, comment listing]
	var listings []redditListing
	path := fmt.Sprintf("/comments/%s.json", post.ID)
	if err := r.get(ctx, token, path, map[string]string{"raw_json": "1", "limit": "500"}, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	comments := flattenComments(listings[1].Data.Children, post.Subreddit)
	logrus.WithFields(logrus.Fields{
		"post_id":  post.ID,
		"comments": len(comments),
	}).Debug("Expanded comment tree")
	return comments, nil
}

func (r *RedditSource) get(ctx context.Context, token, path string, params map[string]string, out interface{}) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return transportError(r.GetName(), err)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		Get(r.opts.APIBaseURL + path)
	if err != nil {
		return transportError(r.GetName(), err)
	}

	if resp.StatusCode() != http.StatusOK {
		return statusError(r.GetName(), resp.StatusCode(), resp.Body())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return newFetchError(r.GetName(), KindMalformed, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

// flattenComments walks a comment tree depth first and returns every comment
// as a sibling, in the order Reddit supplied them
func flattenComments(children []json.RawMessage, subreddit string) []models.RawItem {
	var comments []models.RawItem

	for _, child := range decodeEach[redditChild]("reddit", children) {
		if child.Kind != "t1" {
			continue
		}

		comment := child.Data.toRawItem()
		if comment.Subreddit == "" {
			comment.Subreddit = subreddit
		}
		comments = append(comments, comment)

		replies := strings.TrimSpace(string(child.Data.Replies))
		if !strings.HasPrefix(replies, "{") {
			continue
		}
		var nested redditListing
		if err := json.Unmarshal(child.Data.Replies, &nested); err != nil {
			logrus.WithError(err).WithField("comment_id", child.Data.ID).Debug("Ignoring undecodable replies")
			continue
		}
		comments = append(comments, flattenComments(nested.Data.Children, subreddit)...)
	}

	return comments
}

func (t redditThing) toRawItem() models.RawItem {
	body := t.Selftext
	if body == "" {
		body = t.Body
	}
	return models.RawItem{
		ID:        t.ID,
		Title:     t.Title,
		Body:      cleanText(body),
		CreatedAt: timestamp(t.Created),
		Subreddit: t.Subreddit,
		Permalink: t.Permalink,
	}
}

// cleanText drops Reddit's placeholders for removed content
func cleanText(text string) string {
	switch strings.TrimSpace(text) {
	case "[deleted]", "[removed]":
		return ""
	}
	return text
}

// timestamp converts epoch seconds; a missing value stays the zero time
func timestamp(epoch float64) time.Time {
	if epoch <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(epoch), 0).UTC()
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
