package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/azure/reddit-mentions-listener/internal/config"
	"github.com/azure/reddit-mentions-listener/internal/export"
	"github.com/azure/reddit-mentions-listener/internal/extractor"
	"github.com/azure/reddit-mentions-listener/internal/models"
	"github.com/azure/reddit-mentions-listener/internal/notifications"
	"github.com/azure/reddit-mentions-listener/internal/sentiment"
	"github.com/azure/reddit-mentions-listener/internal/sources"
	"github.com/azure/reddit-mentions-listener/internal/storage"
)

// Query outcome
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
)

const watchTimeout = 30 * time.Minute

const (
	reportsRoot = "reports/"
	dayLayout   = "2006-01-02"
)

var (
	// ErrInvalidQuery is wrapped by every request validation failure
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoStorage is returned by report lookups when no store is configured
	ErrNoStorage = errors.New("report storage is not configured")
)

// Service runs mention queries against the configured fetch backend
type Service struct {
	config              *config.Config
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	source              sources.Source
	scorer              sentiment.Scorer
	metrics             *Metrics
	mu                  sync.RWMutex
	now                 func() time.Time
}

// Metrics holds monitoring metrics
type Metrics struct {
	QueriesRun         int            `json:"queries_run"`
	WatchRuns          int            `json:"watch_runs"`
	TotalMentions      int            `json:"total_mentions"`
	ItemsScanned       int            `json:"items_scanned"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	LastStatus         string         `json:"last_status"`
	WatchMentions      map[string]int `json:"watch_mentions"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	ErrorCount         int            `json:"error_count"`
	ErrorsByKind       map[string]int `json:"errors_by_kind"`
}

// QueryRequest is an on-demand query. Start and End are calendar dates
// interpreted in the configured timezone; both days are included.
type QueryRequest struct {
	Phrase    string
	Subreddit string
	Start     time.Time
	End       time.Time
	MaxItems  int
}

// QueryResult is everything one query produced
type QueryResult struct {
	ID            string                `json:"id"`
	GeneratedAt   time.Time             `json:"generated_at"`
	Source        string                `json:"source"`
	Scorer        string                `json:"scorer"`
	Criteria      models.SearchCriteria `json:"criteria"`
	Status        string                `json:"status"`
	ItemsScanned  int                   `json:"items_scanned"`
	MentionsFound int                   `json:"mentions_found"`
	Mentions      []models.Mention      `json:"mentions"`
	Summary       models.Summary        `json:"summary"`
	TopWords      []models.WordCount    `json:"top_words"`
}

// NewService creates a monitoring service with the fetch backend and scorer
// selected by cfg
func NewService(cfg *config.Config, store storage.StorageInterface, notificationService notifications.NotificationInterface) (*Service, error) {
	scorer, err := sentiment.New(cfg.Scorer)
	if err != nil {
		return nil, err
	}
	return NewServiceWith(cfg, store, notificationService, NewSource(cfg), scorer), nil
}

// NewServiceWith creates a monitoring service with explicit collaborators
func NewServiceWith(cfg *config.Config, store storage.StorageInterface, notificationService notifications.NotificationInterface, source sources.Source, scorer sentiment.Scorer) *Service {
	return &Service{
		config:              cfg,
		storage:             store,
		notificationService: notificationService,
		source:              source,
		scorer:              scorer,
		metrics: &Metrics{
			WatchMentions:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
			ErrorsByKind:       make(map[string]int),
		},
		now: time.Now,
	}
}

// NewSource builds the fetch backend named by cfg.Source
func NewSource(cfg *config.Config) sources.Source {
	if cfg.Source == "pushshift" {
		return sources.NewPushshiftSource(cfg.PushshiftURL, cfg.PushshiftToken)
	}
	return sources.NewRedditSource(sources.RedditOptions{
		ClientID:          cfg.RedditClientID,
		ClientSecret:      cfg.RedditClientSecret,
		UserAgent:         cfg.RedditUserAgent,
		Mode:              sources.RedditMode(cfg.RedditMode),
		IncludeComments:   cfg.IncludeComments,
		RequestsPerMinute: cfg.RedditRequestsPerMinute,
	})
}

// Source returns the fetch backend queries run against
func (s *Service) Source() sources.Source {
	return s.source
}

func (s *Service) location() *time.Location {
	if s.config.Location != nil {
		return s.config.Location
	}
	return time.UTC
}

// Criteria validates req and builds the search criteria it describes
func (s *Service) Criteria(req QueryRequest) (models.SearchCriteria, error) {
	if strings.TrimSpace(req.Phrase) == "" {
		return models.SearchCriteria{}, fmt.Errorf("%w: phrase is required", ErrInvalidQuery)
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return models.SearchCriteria{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidQuery)
	}
	if req.MaxItems < 0 {
		return models.SearchCriteria{}, fmt.Errorf("%w: limit must not be negative", ErrInvalidQuery)
	}

	start, end := models.WindowForDates(req.Start, req.End, s.location())
	if end.Before(start) {
		return models.SearchCriteria{}, fmt.Errorf("%w: end date is before start date", ErrInvalidQuery)
	}

	maxItems := req.MaxItems
	if maxItems == 0 {
		maxItems = s.config.MaxItems
	}
	return models.NewSearchCriteria(req.Phrase, req.Subreddit, start, end, maxItems), nil
}

// RunQuery fetches candidates once, extracts and scores mentions and
// summarizes them. A fetch failure is returned as is; an empty result is
// reported through Status.
func (s *Service) RunQuery(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	criteria, err := s.Criteria(req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, criteria)
}

func (s *Service) run(ctx context.Context, criteria models.SearchCriteria) (*QueryResult, error) {
	start := s.now()
	logger := logrus.WithFields(logrus.Fields{
		"phrase":    criteria.Phrase,
		"subreddit": criteria.Subreddit,
		"source":    s.source.GetName(),
		"scorer":    s.scorer.Name(),
	})
	logger.Info("Running mention query")

	items, err := s.source.Search(ctx, criteria)
	if err != nil {
		s.recordError(err)
		logger.WithError(err).Error("Fetch failed")
		return nil, fmt.Errorf("fetch from %s: %w", s.source.GetName(), err)
	}

	extracted, err := extractor.ExtractContext(ctx, items, criteria, s.scorer, extractor.Options{
		IndependentCommentWindow: s.config.IndependentCommentWindow,
	})
	if err != nil {
		s.recordError(err)
		return nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	result := &QueryResult{
		ID:            uuid.NewString(),
		GeneratedAt:   s.now().UTC(),
		Source:        s.source.GetName(),
		Scorer:        s.scorer.Name(),
		Criteria:      criteria,
		Status:        StatusOK,
		ItemsScanned:  extracted.ItemsScanned,
		MentionsFound: extracted.MentionsFound,
		Mentions:      extracted.Mentions,
		Summary:       extractor.Summarize(extracted.Mentions, extractor.LabelerFor(s.scorer)),
		TopWords:      extractor.TopWords(extracted.Texts, criteria.Phrase, extractor.DefaultTopWords),
	}
	if !result.Summary.HasData {
		result.Status = StatusEmpty
		logger.Warn("No mentions found for the selected criteria")
	}

	s.recordQuery(result, s.now().Sub(start))

	logger.WithFields(logrus.Fields{
		"items_scanned": result.ItemsScanned,
		"mentions":      result.MentionsFound,
		"average":       result.Summary.AverageSentiment,
	}).Info("Mention query completed")

	return result, nil
}

// WatchCriteria is the query a watch runs at now: the LookbackDays whole
// days before today plus today so far
func (s *Service) WatchCriteria(watch config.Watch, now time.Time) models.SearchCriteria {
	lookback := watch.LookbackDays
	if lookback <= 0 {
		lookback = 1
	}
	today := now.In(s.location())
	start, end := models.WindowForDates(today.AddDate(0, 0, -lookback), today, s.location())

	maxItems := watch.MaxItems
	if maxItems <= 0 {
		maxItems = s.config.MaxItems
	}
	return models.NewSearchCriteria(watch.Phrase, watch.Subreddit, start, end, maxItems)
}

// RunWatch runs a watch's query, stores the CSV and JSON report, sends the
// report and, when the watch has a threshold, a low-sentiment alert
func (s *Service) RunWatch(ctx context.Context, watch config.Watch) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, watchTimeout)
	defer cancel()

	result, err := s.run(ctx, s.WatchCriteria(watch, s.now()))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", watch.Name, err)
	}

	report, err := s.buildReport(watch, result)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", watch.Name, err)
	}

	s.mu.Lock()
	s.metrics.WatchRuns++
	s.metrics.WatchMentions[watch.Name] = report.Summary.MentionCount
	s.mu.Unlock()

	if err := s.storeReport(report); err != nil {
		s.recordError(err)
		return report, fmt.Errorf("watch %s: %w", watch.Name, err)
	}
	s.pruneReports(watch.Name, report.GeneratedAt)

	if err := s.notificationService.SendReport(report); err != nil {
		s.recordError(err)
		return report, fmt.Errorf("watch %s: failed to send report: %w", watch.Name, err)
	}

	if alert := s.checkAlert(watch, report); alert != nil {
		if err := s.notificationService.SendAlert(alert); err != nil {
			s.recordError(err)
			return report, fmt.Errorf("watch %s: failed to send alert: %w", watch.Name, err)
		}
	}

	return report, nil
}

// RunAllWatches runs every configured watch in turn; one failing watch does
// not stop the others
func (s *Service) RunAllWatches(ctx context.Context) error {
	logrus.WithField("watches", len(s.config.Watches)).Info("Starting watch run")

	var errs []error
	for _, watch := range s.config.Watches {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.RunWatch(ctx, watch); err != nil {
			logrus.WithError(err).WithField("watch", watch.Name).Error("Watch run failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) buildReport(watch config.Watch, result *QueryResult) (*models.Report, error) {
	csvData, err := export.CSVBytes(result.Mentions)
	if err != nil {
		return nil, fmt.Errorf("failed to export mentions: %w", err)
	}

	return &models.Report{
		ID:           result.ID,
		GeneratedAt:  result.GeneratedAt,
		Watch:        watch.Name,
		Scorer:       result.Scorer,
		Criteria:     result.Criteria,
		ItemsScanned: result.ItemsScanned,
		Mentions:     result.Mentions,
		Summary:      result.Summary,
		TopWords:     result.TopWords,
		CSV:          csvData,
		CSVName:      export.Filename(result.Criteria, result.GeneratedAt),
	}, nil
}

// reportPrefix groups a watch's artifacts by day, e.g. reports/rinse-kit/2024-03-08/
func reportPrefix(report *models.Report) string {
	return fmt.Sprintf("%s%s/%s/", reportsRoot, report.Watch, report.GeneratedAt.Format(dayLayout))
}

// pruneReports deletes a watch's artifacts from days before the retention
// cutoff. Failures are logged and do not fail the run.
func (s *Service) pruneReports(watchName string, now time.Time) int {
	if s.config.ReportRetentionDays <= 0 {
		return 0
	}

	logger := logrus.WithField("watch", watchName)
	prefix := reportsRoot + watchName + "/"
	names, err := s.storage.List(prefix)
	if err != nil {
		logger.WithError(err).Warn("Failed to list reports for pruning")
		return 0
	}

	cutoff := now.UTC().AddDate(0, 0, -s.config.ReportRetentionDays).Format(dayLayout)
	deleted := 0
	for _, name := range names {
		stamp, _, ok := strings.Cut(strings.TrimPrefix(name, prefix), "/")
		if !ok {
			continue
		}
		if _, err := time.Parse(dayLayout, stamp); err != nil || stamp >= cutoff {
			continue
		}
		if err := s.storage.Delete(name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.WithError(err).WithField("name", name).Warn("Failed to delete expired report")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff,
		}).Info("Pruned expired reports")
	}
	return deleted
}

// ListReports returns the names of stored artifacts, limited to one watch
// when watchName is set
func (s *Service) ListReports(watchName string) ([]string, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	prefix := reportsRoot
	if watchName != "" {
		prefix += strings.Trim(watchName, "/") + "/"
	}
	names, err := s.storage.List(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// GetReport returns a stored artifact. Only names under reports/ are served.
func (s *Service) GetReport(name string) ([]byte, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	cleaned := path.Clean("/" + name)
	if !strings.HasPrefix(cleaned, "/"+reportsRoot) {
		return nil, fmt.Errorf("%w: %q is not a report", ErrInvalidQuery, name)
	}
	return s.storage.Retrieve(strings.TrimPrefix(cleaned, "/"))
}

func (s *Service) storeReport(report *models.Report) error {
	prefix := reportPrefix(report)

	if err := s.storage.Store(prefix+report.CSVName, report.CSV); err != nil {
		return fmt.Errorf("failed to store csv: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := s.storage.Store(prefix+"report-"+report.ID+".json", data); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (s *Service) checkAlert(watch config.Watch, report *models.Report) *models.Alert {
	if watch.AlertBelow == nil || !report.Summary.HasData {
		return nil
	}
	if report.Summary.AverageSentiment >= *watch.AlertBelow {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"watch":     watch.Name,
		"average":   report.Summary.AverageSentiment,
		"threshold": *watch.AlertBelow,
	}).Warn("Average sentiment below alert threshold")

	return &models.Alert{
		Watch:            watch.Name,
		Phrase:           report.Criteria.Phrase,
		AverageSentiment: report.Summary.AverageSentiment,
		Threshold:        *watch.AlertBelow,
		MentionCount:     report.Summary.MentionCount,
		ReportID:         report.ID,
		CreatedAt:        report.GeneratedAt,
	}
}

func (s *Service) recordQuery(result *QueryResult, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.QueriesRun++
	s.metrics.TotalMentions += result.MentionsFound
	s.metrics.ItemsScanned += result.ItemsScanned
	s.metrics.LastRun = result.GeneratedAt
	s.metrics.LastRunDuration = duration.String()
	s.metrics.LastStatus = result.Status
	for label, count := range result.Summary.Labels {
		s.metrics.SentimentBreakdown[string(label)] += count
	}
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kind string
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = "canceled"
	case sources.KindOf(err) != "":
		kind = string(sources.KindOf(err))
	default:
		kind = "internal"
	}

	s.metrics.ErrorCount++
	s.metrics.ErrorsByKind[kind]++
	s.metrics.LastStatus = "error"
}

// Snapshot returns a copy of the current metrics
func (s *Service) Snapshot() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := *s.metrics
	snapshot.WatchMentions = copyCounts(s.metrics.WatchMentions)
	snapshot.SentimentBreakdown = copyCounts(s.metrics.SentimentBreakdown)
	snapshot.ErrorsByKind = copyCounts(s.metrics.ErrorsByKind)
	return snapshot
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	snapshot := s.Snapshot()
	data, _ := json.MarshalIndent(snapshot, "", "  ")
	return string(data)
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
