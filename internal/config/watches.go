package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Watch is a saved query that runs on a cron schedule
type Watch struct {
	Name         string `yaml:"name"`
	Phrase       string `yaml:"phrase"`
	Subreddit    string `yaml:"subreddit"`
	Schedule     string `yaml:"schedule"`
	LookbackDays int    `yaml:"lookback_days"`
	MaxItems     int    `yaml:"max_items"`
	// AlertBelow raises an alert when the average sentiment of a run is
	// lower than this value. Nil disables alerting.
	AlertBelow *float64 `yaml:"alert_below"`
}

type watchFile struct {
	Watches []Watch `yaml:"watches"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// LoadWatches reads the watch list from a YAML file of the form
//
//	watches:
//	  - name: rinse-kit
//	    phrase: rinse kit
//	    subreddit: camping
//	    schedule: "0 0 9 * * MON"
//	    lookback_days: 7
func LoadWatches(path string) ([]Watch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watches file: %w", err)
	}

	var file watchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse watches yaml: %w", err)
	}

	return file.Watches, nil
}

func watchesFromKeywords(keywords []string, subreddit string) []Watch {
	watches := make([]Watch, 0, len(keywords))
	for _, keyword := range keywords {
		watches = append(watches, Watch{Phrase: keyword, Subreddit: subreddit})
	}
	return watches
}

// applyWatchDefaults fills unset fields from the global settings and rejects
// watches that cannot run
func (c *Config) applyWatchDefaults() error {
	seen := make(map[string]bool, len(c.Watches))

	for i := range c.Watches {
		w := &c.Watches[i]

		w.Phrase = strings.TrimSpace(w.Phrase)
		if w.Phrase == "" {
			return fmt.Errorf("watch %d: phrase is required", i+1)
		}
		if w.Name == "" {
			w.Name = slug(w.Phrase)
		}
		if w.Name == "" {
			w.Name = fmt.Sprintf("watch-%d", i+1)
		}
		if seen[w.Name] {
			return fmt.Errorf("watch %q is defined more than once", w.Name)
		}
		seen[w.Name] = true

		if w.Schedule == "" {
			w.Schedule = c.DefaultCron()
		}
		if w.LookbackDays < 0 {
			return fmt.Errorf("watch %q: lookback_days must not be negative", w.Name)
		}
		if w.LookbackDays == 0 {
			w.LookbackDays = c.DefaultLookbackDays()
		}
		if w.MaxItems <= 0 {
			w.MaxItems = c.MaxItems
		}
	}

	return nil
}

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
