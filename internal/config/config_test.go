package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "daily", cfg.ReportSchedule)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, "reddit", cfg.Source)
	assert.Equal(t, "listing", cfg.RedditMode)
	assert.True(t, cfg.IncludeComments)
	assert.False(t, cfg.IndependentCommentWindow)
	assert.Equal(t, 100, cfg.MaxItems)
	assert.Equal(t, "vader", cfg.Scorer)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 90, cfg.ReportRetentionDays)
	assert.Empty(t, cfg.Watches)
	assert.False(t, cfg.RedditConfigured())
}

func TestLoad_KeywordsBecomeWatches(t *testing.T) {
	t.Setenv("KEYWORDS", "Rinse Kit, Jetboil ,")
	t.Setenv("SUBREDDIT", "camping")
	t.Setenv("REPORT_SCHEDULE", "weekly")
	t.Setenv("MAX_ITEMS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Watches, 2)
	assert.Equal(t, Watch{
		Name:         "rinse-kit",
		Phrase:       "Rinse Kit",
		Subreddit:    "camping",
		Schedule:     WeeklyCron,
		LookbackDays: 7,
		MaxItems:     250,
	}, cfg.Watches[0])
	assert.Equal(t, "jetboil", cfg.Watches[1].Name)
}

func TestLoad_WatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watches.yaml")
	content := `
watches:
  - name: shower
    phrase: rinse kit
    subreddit: r/camping
    schedule: "0 30 8 * * *"
    lookback_days: 3
    max_items: 50
    alert_below: -0.2
  - phrase: jetboil
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("WATCHES_FILE", path)
	t.Setenv("KEYWORDS", "ignored")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Watches, 2)
	first := cfg.Watches[0]
	assert.Equal(t, "shower", first.Name)
	assert.Equal(t, "0 30 8 * * *", first.Schedule)
	assert.Equal(t, 3, first.LookbackDays)
	assert.Equal(t, 50, first.MaxItems)
	require.NotNil(t, first.AlertBelow)
	assert.Equal(t, -0.2, *first.AlertBelow)

	second := cfg.Watches[1]
	assert.Equal(t, "jetboil", second.Name)
	assert.Equal(t, DailyCron, second.Schedule)
	assert.Equal(t, 1, second.LookbackDays)
	assert.Equal(t, 100, second.MaxItems)
	assert.Nil(t, second.AlertBelow)
}

func TestLoad_WatchesFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "Invalid yaml", content: "watches: [", errMsg: "parse watches yaml"},
		{name: "Missing phrase", content: "watches:\n  - name: x\n", errMsg: "phrase is required"},
		{name: "Duplicate name", content: "watches:\n  - phrase: tent\n  - phrase: Tent\n", errMsg: "defined more than once"},
		{name: "Negative lookback", content: "watches:\n  - phrase: tent\n    lookback_days: -1\n", errMsg: "lookback_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, filepath.Base(t.Name())+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			t.Setenv("WATCHES_FILE", path)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("Missing file", func(t *testing.T) {
		t.Setenv("WATCHES_FILE", filepath.Join(dir, "nope.yaml"))
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read watches file")
	})
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{name: "Bad schedule", env: map[string]string{"REPORT_SCHEDULE": "hourly"}, errMsg: "REPORT_SCHEDULE"},
		{name: "Bad source", env: map[string]string{"SOURCE": "twitter"}, errMsg: "SOURCE"},
		{name: "Bad mode", env: map[string]string{"REDDIT_MODE": "hot"}, errMsg: "REDDIT_MODE"},
		{name: "Bad scorer", env: map[string]string{"SENTIMENT_SCORER": "bert"}, errMsg: "SENTIMENT_SCORER"},
		{name: "Negative max items", env: map[string]string{"MAX_ITEMS": "-1"}, errMsg: "MAX_ITEMS"},
		{name: "Negative retention", env: map[string]string{"REPORT_RETENTION_DAYS": "-1"}, errMsg: "REPORT_RETENTION_DAYS"},
		{name: "Bad storage", env: map[string]string{"STORAGE_BACKEND": "s3"}, errMsg: "STORAGE_BACKEND"},
		{name: "Azure without account", env: map[string]string{"STORAGE_BACKEND": "azure"}, errMsg: "AZURE_STORAGE_ACCOUNT"},
		{name: "Email without SMTP", env: map[string]string{"NOTIFICATION_EMAIL": "a@example.com"}, errMsg: "SMTP"},
		{name: "Bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}, errMsg: "TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SOURCE", "Pushshift")
	t.Setenv("SENTIMENT_SCORER", "polarity")
	t.Setenv("INDEPENDENT_COMMENT_WINDOW", "true")
	t.Setenv("TIMEZONE", "America/New_York")
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pushshift", cfg.Source)
	assert.Equal(t, "polarity", cfg.Scorer)
	assert.True(t, cfg.IndependentCommentWindow)
	assert.Equal(t, "America/New_York", cfg.Location.String())
	assert.True(t, cfg.RedditConfigured())
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "rinse-kit", slug("Rinse Kit"))
	assert.Equal(t, "c", slug("C++"))
	assert.Equal(t, "", slug("!!!"))
}
