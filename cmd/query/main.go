package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/azure/reddit-mentions-listener/internal/config"
	"github.com/azure/reddit-mentions-listener/internal/export"
	"github.com/azure/reddit-mentions-listener/internal/extractor"
	"github.com/azure/reddit-mentions-listener/internal/models"
	"github.com/azure/reddit-mentions-listener/internal/monitoring"
	"github.com/azure/reddit-mentions-listener/internal/notifications"
	"github.com/azure/reddit-mentions-listener/internal/storage"
)

func main() {
	today := time.Now().Format("2006-01-02")

	phrase := flag.String("phrase", "", "phrase to search for (required)")
	subreddit := flag.String("subreddit", "", "restrict to one subreddit")
	start := flag.String("start", today, "first day of the window (YYYY-MM-DD)")
	end := flag.String("end", today, "last day of the window (YYYY-MM-DD)")
	limit := flag.Int("limit", 0, "maximum submissions to examine (0 uses MAX_ITEMS)")
	csvDir := flag.String("csv", "", "directory to write the CSV export to")
	rows := flag.Int("rows", 20, "mentions to print")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if strings.TrimSpace(*phrase) == "" {
		flag.Usage()
		os.Exit(2)
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("Invalid -start: %v", err)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		log.Fatalf("Invalid -end: %v", err)
	}

	// Nothing is stored or sent from a one-off query
	svc, err := monitoring.NewService(cfg, nil, notifications.NewService(&config.Config{}))
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := svc.RunQuery(ctx, monitoring.QueryRequest{
		Phrase:    *phrase,
		Subreddit: *subreddit,
		Start:     startDate,
		End:       endDate,
		MaxItems:  *limit,
	})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	printResult(result, *rows)

	if *csvDir != "" {
		if err := writeCSV(result, *csvDir); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
	}
}

func printResult(result *monitoring.QueryResult, rows int) {
	fmt.Printf("Phrase:    %q\n", result.Criteria.Phrase)
	fmt.Printf("Window:    %s to %s\n", result.Criteria.WindowStart.Format(time.RFC3339), result.Criteria.WindowEnd.Format(time.RFC3339))
	fmt.Printf("Scanned:   %d items via %s\n", result.ItemsScanned, result.Source)
	fmt.Printf("Mentions:  %d\n", result.MentionsFound)

	if result.Status == monitoring.StatusEmpty {
		fmt.Println("\nNo mentions found for the selected criteria.")
		return
	}

	fmt.Printf("Average sentiment (%s): %.4f\n", result.Scorer, result.Summary.AverageSentiment)
	for _, label := range []models.Label{models.LabelPositive, models.LabelNeutral, models.LabelNegative} {
		if count, ok := result.Summary.Labels[label]; ok {
			fmt.Printf("  %-8s %d\n", label, count)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nDATE\tSUBREDDIT\tTYPE\tSENTIMENT\tTEXT")
	for i, m := range result.Mentions {
		if i >= rows {
			fmt.Fprintf(w, "... %d more\t\t\t\t\n", len(result.Mentions)-rows)
			break
		}
		text := extractor.Truncate(strings.Join(strings.Fields(m.Text), " "), 80)
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Subreddit, m.SourceType, m.SentimentScore, text)
	}
	w.Flush()

	if len(result.TopWords) > 0 {
		words := make([]string, 0, len(result.TopWords))
		for _, wc := range result.TopWords {
			words = append(words, fmt.Sprintf("%s(%d)", wc.Word, wc.Count))
		}
		fmt.Printf("\nTop words: %s\n", strings.Join(words, " "))
	}
}

func writeCSV(result *monitoring.QueryResult, dir string) error {
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		return err
	}

	data, err := export.CSVBytes(result.Mentions)
	if err != nil {
		return err
	}

	name := export.Filename(result.Criteria, result.GeneratedAt)
	if err := store.Store(name, data); err != nil {
		return err
	}

	fmt.Printf("\nCSV written to %s\n", filepath.Join(dir, name))
	return nil
}
