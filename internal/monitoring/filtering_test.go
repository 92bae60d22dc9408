package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

// An old submission whose comment thread is still active inside the window
func lateThread() []models.RawItem {
	return []models.RawItem{
		{
			ID:        "old",
			Title:     "Best camp shower?",
			CreatedAt: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			Subreddit: "camping",
			Permalink: "/r/camping/comments/old/",
			Children: []models.RawItem{
				{ID: "late", Body: "The rinse kit is great", CreatedAt: day(3, 10)},
				{ID: "early", Body: "rinse kit all the way", CreatedAt: time.Date(2024, 2, 21, 0, 0, 0, 0, time.UTC)},
			},
		},
	}
}

func TestCommentWindowPolicy(t *testing.T) {
	testCases := []struct {
		name        string
		independent bool
		expected    []string
	}{
		{
			name:        "Comments follow their submission",
			independent: false,
			expected:    nil,
		},
		{
			name:        "Comments checked on their own timestamps",
			independent: true,
			expected:    []string{"The rinse kit is great"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source := &MockSource{}
			source.On("Search", mock.Anything, mock.Anything).Return(lateThread(), nil)

			service, _, _ := newTestService(source)
			service.config.IndependentCommentWindow = tc.independent

			result, err := service.RunQuery(context.Background(), marchRequest())
			require.NoError(t, err)

			var texts []string
			for _, m := range result.Mentions {
				assert.Equal(t, models.SourceComment, m.SourceType)
				assert.True(t, !m.CreatedAt.Before(result.Criteria.WindowStart) && !m.CreatedAt.After(result.Criteria.WindowEnd))
				texts = append(texts, m.Text)
			}
			assert.Equal(t, tc.expected, texts)
		})
	}
}

func TestWholeWordFiltering(t *testing.T) {
	items := []models.RawItem{
		{ID: "1", Title: "Rinse kits are overrated", CreatedAt: day(2, 0), Subreddit: "camping"},
		{ID: "2", Title: "my rinse   kit arrived", CreatedAt: day(2, 1), Subreddit: "camping"},
		{ID: "3", Title: "RINSE KIT!", CreatedAt: day(2, 2), Subreddit: "camping"},
		{ID: "4", Title: "rinse, kit", CreatedAt: day(2, 3), Subreddit: "camping"},
		{ID: "5", Title: "no timestamp rinse kit", Subreddit: "camping"},
	}

	source := &MockSource{}
	source.On("Search", mock.Anything, mock.Anything).Return(items, nil)

	service, _, _ := newTestService(source)
	result, err := service.RunQuery(context.Background(), marchRequest())
	require.NoError(t, err)

	var texts []string
	for _, m := range result.Mentions {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"my rinse   kit arrived", "RINSE KIT!"}, texts)
	assert.Equal(t, 5, result.ItemsScanned)
}

func TestMaxItemsLimitsScan(t *testing.T) {
	var items []models.RawItem
	for i := 0; i < 5; i++ {
		items = append(items, models.RawItem{ID: string(rune('a' + i)), Title: "rinse kit", CreatedAt: day(2, i), Subreddit: "camping"})
	}

	source := &MockSource{}
	source.On("Search", mock.Anything, mock.MatchedBy(func(c models.SearchCriteria) bool {
		return c.MaxItems == 2
	})).Return(items, nil)

	service, _, _ := newTestService(source)
	req := marchRequest()
	req.MaxItems = 2

	result, err := service.RunQuery(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsScanned)
	assert.Len(t, result.Mentions, 2)
}
