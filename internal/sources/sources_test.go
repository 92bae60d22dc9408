package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

var (
	testWindowStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	testWindowEnd   = time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
)

func testCriteria(subreddit string, maxItems int) models.SearchCriteria {
	return models.NewSearchCriteria("tent", subreddit, testWindowStart, testWindowEnd, maxItems)
}

// fakeReddit serves the token endpoint and a small API surface
type fakeReddit struct {
	t           *testing.T
	server      *httptest.Server
	tokenCalls  atomic.Int32
	tokenStatus int
	tokenDelay  time.Duration
	apiStatus   int
	pages       map[string]string
	comments    map[string]string
	lastQuery   atomic.Value
}

func newFakeReddit(t *testing.T) *fakeReddit {
	f := &fakeReddit{
		t:           t,
		tokenStatus: http.StatusOK,
		apiStatus:   http.StatusOK,
		pages:       map[string]string{},
		comments:    map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client_id", user)
		assert.Equal(t, "client_secret", pass)
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))

		if f.tokenDelay > 0 {
			select {
			case <-time.After(f.tokenDelay):
			case <-r.Context().Done():
				return
			}
		}
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok123","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		f.lastQuery.Store(r.URL.Query())

		if f.apiStatus != http.StatusOK {
			w.WriteHeader(f.apiStatus)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/comments/") {
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/comments/"), ".json")
			body, ok := f.comments[id]
			if !ok {
				t.Errorf("unexpected comments request for %s", id)
			}
			w.Write([]byte(body))
			return
		}

		key := r.URL.Path + "?after=" + r.URL.Query().Get("after")
		body, ok := f.pages[key]
		if !ok {
			t.Errorf("unexpected request: %s", key)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeReddit) source(mode RedditMode, includeComments bool) *RedditSource {
	return NewRedditSource(RedditOptions{
		ClientID:          "client_id",
		ClientSecret:      "client_secret",
		UserAgent:         "test-agent/1.0",
		Mode:              mode,
		IncludeComments:   includeComments,
		RequestsPerMinute: 60000,
		APIBaseURL:        f.server.URL,
		TokenURL:          f.server.URL + "/api/v1/access_token",
	})
}

func listing(after string, posts ...map[string]interface{}) string {
	children := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		children = append(children, map[string]interface{}{"kind": "t3", "data": p})
	}
	data, _ := json.Marshal(map[string]interface{}{
		"kind": "Listing",
		"data": map[string]interface{}{"after": after, "children": children},
	})
	return string(data)
}

func post(id, title string, created time.Time, numComments int) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"title":        title,
		"selftext":     "",
		"subreddit":    "camping",
		"permalink":    "/r/camping/comments/" + id + "/",
		"created_utc":  float64(created.Unix()),
		"num_comments": numComments,
	}
}

func TestRedditSource_GetName(t *testing.T) {
	source := NewRedditSource(RedditOptions{ClientID: "client_id", ClientSecret: "client_secret"})
	assert.Equal(t, "reddit", source.GetName())
}

func TestRedditSource_IsEnabled(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		expected     bool
	}{
		{
			name:         "Both credentials provided",
			clientID:     "client_id",
			clientSecret: "client_secret",
			expected:     true,
		},
		{
			name:         "Missing client ID",
			clientID:     "",
			clientSecret: "client_secret",
			expected:     false,
		},
		{
			name:         "Missing client secret",
			clientID:     "client_id",
			clientSecret: "",
			expected:     false,
		},
		{
			name:         "Both missing",
			clientID:     "",
			clientSecret: "",
			expected:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewRedditSource(RedditOptions{ClientID: tt.clientID, ClientSecret: tt.clientSecret})
			assert.Equal(t, tt.expected, source.IsEnabled())
		})
	}
}

func TestRedditSource_Search_DisabledIsAuthError(t *testing.T) {
	source := NewRedditSource(RedditOptions{})

	_, err := source.Search(context.Background(), testCriteria("camping", 10))

	require.Error(t, err)
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestRedditSource_Search_ListingPaginates(t *testing.T) {
	f := newFakeReddit(t)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	f.pages["/r/camping/new.json?after="] = listing("t3_b",
		post("a", "new tent", day, 0),
		post("b", "old stove", day.Add(-time.Hour), 0),
	)
	f.pages["/r/camping/new.json?after=t3_b"] = listing("",
		post("c", "tent again", day.Add(-2*time.Hour), 0),
	)

	items, err := f.source(ModeListing, false).Search(context.Background(), testCriteria("camping", 10))

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "new tent", items[0].Title)
	assert.Equal(t, day, items[0].CreatedAt)
	assert.Equal(t, "/r/camping/comments/a/", items[0].Permalink)
	assert.Equal(t, "c", items[2].ID)
	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestRedditSource_Search_ListingStopsBeforeWindow(t *testing.T) {
	f := newFakeReddit(t)
	f.pages["/r/camping/new.json?after="] = listing("t3_old",
		post("new", "tent", testWindowStart.Add(time.Hour), 0),
		post("old", "tent", testWindowStart.Add(-time.Hour), 0),
	)

	items, err := f.source(ModeListing, false).Search(context.Background(), testCriteria("camping", 100))

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRedditSource_Search_MaxItems(t *testing.T) {
	f := newFakeReddit(t)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	f.pages["/r/camping/new.json?after="] = listing("t3_c",
		post("a", "tent", day, 0),
		post("b", "tent", day, 0),
		post("c", "tent", day, 0),
	)

	items, err := f.source(ModeListing, false).Search(context.Background(), testCriteria("camping", 2))

	require.NoError(t, err)
	assert.Len(t, items, 2)
	query := f.lastQuery.Load().(url.Values)
	assert.Equal(t, []string{"2"}, query["limit"])
}

func TestRedditSource_Search_SearchMode(t *testing.T) {
	f := newFakeReddit(t)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	f.pages["/r/camping/search.json?after="] = listing("", post("a", "tent", day, 0))

	items, err := f.source(ModeSearch, false).Search(context.Background(), testCriteria("camping", 10))

	require.NoError(t, err)
	require.Len(t, items, 1)
	query := f.lastQuery.Load().(url.Values)
	assert.Equal(t, []string{"tent"}, query["q"])
	assert.Equal(t, []string{"1"}, query["restrict_sr"])
}

func TestRedditSource_Search_AllSubredditsWhenUnscoped(t *testing.T) {
	f := newFakeReddit(t)
	f.pages["/r/all/new.json?after="] = listing("")

	items, err := f.source(ModeListing, false).Search(context.Background(), testCriteria("", 10))

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedditSource_Search_ExpandsComments(t *testing.T) {
	f := newFakeReddit(t)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	f.pages["/r/camping/new.json?after="] = listing("",
		post("a", "tent", day, 3),
		post("b", "no comments", day, 0),
	)
	f.comments["a"] = `[
		{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"a"}}]}},
		{"kind":"Listing","data":{"children":[
			{"kind":"t1","data":{"id":"c1","body":"first tent comment","created_utc":1710072000,"permalink":"/r/camping/comments/a/_/c1/",
				"replies":{"kind":"Listing","data":{"children":[
					{"kind":"t1","data":{"id":"c2","body":"nested reply","created_utc":1710075600,"replies":""}}
				]}}}},
			{"kind":"t1","data":{"id":"c3","body":"[deleted]","created_utc":1710079200,"replies":""}},
			{"kind":"more","data":{"id":"m1"}}
		]}}
	]`

	items, err := f.source(ModeListing, true).Search(context.Background(), testCriteria("camping", 10))

	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Len(t, items[0].Children, 3)
	assert.Equal(t, "c1", items[0].Children[0].ID)
	assert.Equal(t, "c2", items[0].Children[1].ID)
	assert.Equal(t, "nested reply", items[0].Children[1].Body)
	assert.Equal(t, "camping", items[0].Children[1].Subreddit)
	assert.Equal(t, "", items[0].Children[2].Body)
	assert.Empty(t, items[0].Children[1].Children)
	assert.Empty(t, items[1].Children)
}

func TestRedditSource_Search_ErrorKinds(t *testing.T) {
	tests := []struct {
		name        string
		tokenStatus int
		apiStatus   int
		expected    ErrorKind
	}{
		{name: "Token rejected", tokenStatus: http.StatusUnauthorized, apiStatus: http.StatusOK, expected: KindAuth},
		{name: "API forbidden", tokenStatus: http.StatusOK, apiStatus: http.StatusForbidden, expected: KindAuth},
		{name: "Rate limited", tokenStatus: http.StatusOK, apiStatus: http.StatusTooManyRequests, expected: KindRateLimit},
		{name: "Server error", tokenStatus: http.StatusOK, apiStatus: http.StatusBadGateway, expected: KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeReddit(t)
			f.tokenStatus = tt.tokenStatus
			f.apiStatus = tt.apiStatus

			items, err := f.source(ModeListing, false).Search(context.Background(), testCriteria("camping", 10))

			require.Error(t, err)
			assert.Nil(t, items)
			assert.Equal(t, tt.expected, KindOf(err))
		})
	}
}

func TestRedditSource_Search_Malformed(t *testing.T) {
	f := newFakeReddit(t)
	f.pages["/r/camping/new.json?after="] = `{"data": [not json`

	_, err := f.source(ModeListing, false).Search(context.Background(), testCriteria("camping", 10))

	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestRedditSource_Search_SkipsUndecodableItems(t *testing.T) {
	f := newFakeReddit(t)
	f.pages["/r/camping/new.json?after="] = `{"data":{"children":[
		{"kind":"t3","data":{"id":"good1","title":"tent","created_utc":1710072000,"num_comments":2}},
		{"kind":"t3","data":{"id":"bad","title":"tent","created_utc":"1710072000"}},
		{"kind":"t3","data":{"id":"good2","title":"tent","created_utc":1710075600}}
	]}}`
	f.comments["good1"] = `[
		{"kind":"Listing","data":{"children":[]}},
		{"kind":"Listing","data":{"children":[
			{"kind":"t1","data":{"id":"c1","body":"tent comment","created_utc":1710072000,"replies":""}},
			{"kind":"t1","data":{"id":"c2","body":["not","text"],"created_utc":1710072000}}
		]}}
	]`

	items, err := f.source(ModeListing, true).Search(context.Background(), testCriteria("camping", 10))

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "good1", items[0].ID)
	assert.Equal(t, "good2", items[1].ID)
	require.Len(t, items[0].Children, 1)
	assert.Equal(t, "c1", items[0].Children[0].ID)
}

func TestRedditSource_Search_ReusesToken(t *testing.T) {
	f := newFakeReddit(t)
	f.pages["/r/camping/new.json?after="] = listing("", post("a", "tent", testWindowStart.Add(time.Hour), 0))
	source := f.source(ModeListing, false)

	for i := 0; i < 2; i++ {
		_, err := source.Search(context.Background(), testCriteria("camping", 10))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestRedditSource_Search_TokenRequestHonoursContext(t *testing.T) {
	f := newFakeReddit(t)
	f.tokenDelay = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.source(ModeListing, false).Search(ctx, testCriteria("camping", 10))

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestRedditSource_Search_NetworkFailure(t *testing.T) {
	f := newFakeReddit(t)
	source := f.source(ModeListing, false)
	source.opts.APIBaseURL = "http://127.0.0.1:1"

	_, err := source.Search(context.Background(), testCriteria("camping", 10))

	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestRedditSource_Search_MissingFieldsUseDefaults(t *testing.T) {
	f := newFakeReddit(t)
	f.pages["/r/camping/new.json?after="] = `{"data":{"children":[{"kind":"t3","data":{"id":"x"}}]}}`

	items, err := f.source(ModeListing, false).Search(context.Background(), testCriteria("camping", 10))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].CreatedAt.IsZero())
	assert.Equal(t, "", items[0].Title)
}

func TestPushshiftSource_Search(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reddit/search/submission/", r.URL.Path)
		query = r.URL.Query()
		w.Write([]byte(`{"data":[
			{"id":"p1","title":"Rinse kit review","selftext":"works","subreddit":"camping","created_utc":1710072000,"full_link":"https://www.reddit.com/r/camping/comments/p1/"},
			{"id":"p1","title":"duplicate","created_utc":1710072000},
			{"id":"p2","title":"no timestamp","permalink":"/r/camping/comments/p2/"}
		]}`))
	}))
	defer server.Close()

	source := NewPushshiftSource(server.URL, "")
	items, err := source.Search(context.Background(), models.NewSearchCriteria("Rinse Kit", "camping", testWindowStart, testWindowEnd, 50))

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://www.reddit.com/r/camping/comments/p1/", items[0].Permalink)
	assert.Equal(t, time.Unix(1710072000, 0).UTC(), items[0].CreatedAt)
	assert.True(t, items[1].CreatedAt.IsZero())
	assert.Equal(t, "/r/camping/comments/p2/", items[1].Permalink)

	assert.Equal(t, []string{"rinse kit"}, query["q"])
	assert.Equal(t, []string{"camping"}, query["subreddit"])
	assert.Equal(t, []string{"50"}, query["size"])
	assert.Equal(t, []string{"desc"}, query["sort"])
	assert.Equal(t, []string{"1709251199"}, query["after"])
	assert.Equal(t, []string{"1711929600"}, query["before"])
}

func TestPushshiftSource_Search_SkipsUndecodableItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"p1","title":"tent","created_utc":"1710000000"},
			{"id":"p2","title":"tent","created_utc":1710072000}
		]}`))
	}))
	defer server.Close()

	items, err := NewPushshiftSource(server.URL, "").Search(context.Background(), testCriteria("", 10))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)
}

func TestPushshiftSource_Search_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewPushshiftSource(server.URL, "").Search(context.Background(), testCriteria("", 10))

	require.Error(t, err)
	assert.Equal(t, KindRateLimit, KindOf(err))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "pushshift", fe.Source)
}

func TestDeduplicateItems(t *testing.T) {
	items := []models.RawItem{
		{ID: "1", Title: "First item"},
		{ID: "2", Title: "Second item"},
		{ID: "1", Title: "Duplicate item"},
		{ID: "", Title: "No id"},
		{ID: "", Title: "No id either"},
		{ID: "3", Title: "Third item"},
	}

	unique := deduplicateItems(items)

	assert.Len(t, unique, 5)
	assert.Equal(t, "1", unique[0].ID)
	assert.Equal(t, "2", unique[1].ID)
	assert.Equal(t, "No id", unique[2].Title)
	assert.Equal(t, "3", unique[4].ID)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, KindAuth, KindOf(newFetchError("reddit", KindAuth, errors.New("x"))))
}
