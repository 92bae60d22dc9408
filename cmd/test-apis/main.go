package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/azure/reddit-mentions-listener/internal/config"
	"github.com/azure/reddit-mentions-listener/internal/models"
	"github.com/azure/reddit-mentions-listener/internal/sources"
)

func main() {
	phrase := flag.String("phrase", "reddit", "phrase to search for")
	subreddit := flag.String("subreddit", "announcements", "subreddit to query")
	flag.Parse()

	fmt.Println("🔍 Reddit Mentions Listener - API Connectivity Test")
	fmt.Println("===================================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	end := time.Now().UTC()
	criteria := models.NewSearchCriteria(*phrase, *subreddit, end.AddDate(0, 0, -7), end, 25)

	fmt.Println("\n📡 Testing fetch backends...")
	fmt.Println(strings.Repeat("-", 40))

	redditOpts := sources.RedditOptions{
		ClientID:          cfg.RedditClientID,
		ClientSecret:      cfg.RedditClientSecret,
		UserAgent:         cfg.RedditUserAgent,
		RequestsPerMinute: cfg.RedditRequestsPerMinute,
	}

	listing := redditOpts
	listing.Mode = sources.ModeListing
	testSource(ctx, "Reddit (listing)", sources.NewRedditSource(listing), criteria)

	search := redditOpts
	search.Mode = sources.ModeSearch
	search.IncludeComments = true
	testSource(ctx, "Reddit (search + comments)", sources.NewRedditSource(search), criteria)

	testSource(ctx, "Pushshift", sources.NewPushshiftSource(cfg.PushshiftURL, cfg.PushshiftToken), criteria)

	fmt.Println("\n✅ API connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Configure missing credentials in .env file")
	fmt.Println("   • Run a one-off query with: go run ./cmd/query -phrase \"...\"")
	fmt.Println("   • Run the service with: go run ./cmd/bot")
}

func testSource(ctx context.Context, name string, source sources.Source, criteria models.SearchCriteria) {
	fmt.Printf("🔸 Testing %s... ", name)

	if !source.IsEnabled() {
		fmt.Printf("⚠️  DISABLED (missing credentials)\n")
		return
	}

	items, err := source.Search(ctx, criteria)
	if err != nil {
		kind := sources.KindOf(err)
		fmt.Printf("❌ ERROR [%s]: %v\n", kind, err)
		return
	}

	comments := 0
	for _, item := range items {
		comments += len(item.Children)
	}
	fmt.Printf("✅ SUCCESS (%d submissions, %d comments)\n", len(items), comments)

	if len(items) > 0 {
		fmt.Printf("   📝 Sample: \"%s\" (r/%s, %s)\n", items[0].Title, items[0].Subreddit, items[0].CreatedAt.Format(time.RFC3339))
	}
}
