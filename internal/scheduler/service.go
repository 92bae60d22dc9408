package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/azure/reddit-mentions-listener/internal/config"
	"github.com/azure/reddit-mentions-listener/internal/models"
)

// WatchRunner runs one watch to completion
type WatchRunner interface {
	RunWatch(ctx context.Context, watch config.Watch) (*models.Report, error)
}

// Service runs every configured watch on its own cron schedule
type Service struct {
	config  *config.Config
	runner  WatchRunner
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner WatchRunner) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	logger := cron.PrintfLogger(logrus.StandardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		config: cfg,
		runner: runner,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers every watch and starts the cron loop
func (s *Service) Start() error {
	for _, watch := range s.config.Watches {
		if err := s.add(watch); err != nil {
			return err
		}
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"watches":  len(s.entries),
		"timezone": s.config.TimeZone,
	}).Info("Scheduler started")

	for _, watch := range s.config.Watches {
		logrus.WithFields(logrus.Fields{
			"watch":    watch.Name,
			"next_run": s.Next(watch.Name).Format(time.RFC3339),
		}).Info("Next watch run")
	}
	return nil
}

func (s *Service) add(watch config.Watch) error {
	schedule := watch.Schedule
	if schedule == "" {
		schedule = s.config.DefaultCron()
	}

	id, err := s.cron.AddFunc(schedule, func() { s.runWatch(watch) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for watch %s: %w", schedule, watch.Name, err)
	}

	s.entries[watch.Name] = id
	logrus.WithFields(logrus.Fields{
		"watch":    watch.Name,
		"schedule": schedule,
		"phrase":   watch.Phrase,
	}).Info("Scheduled watch")
	return nil
}

func (s *Service) runWatch(watch config.Watch) {
	logger := logrus.WithFields(logrus.Fields{
		"watch":  watch.Name,
		"run_id": uuid.NewString(),
	})
	logger.Info("Starting scheduled watch run")

	start := time.Now()
	report, err := s.runner.RunWatch(s.ctx, watch)
	if err != nil {
		logger.WithError(err).Error("Scheduled watch run failed")
		return
	}

	logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"mentions":  report.Summary.MentionCount,
		"duration":  time.Since(start).String(),
		"next_run":  s.Next(watch.Name).Format(time.RFC3339),
	}).Info("Scheduled watch run completed")
}

// Next returns the next run time of a watch, or the zero time if it is not
// scheduled
func (s *Service) Next(watchName string) time.Time {
	id, ok := s.entries[watchName]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// Stop stops the scheduler and waits for running watches to finish
func (s *Service) Stop() {
	if s.cron != nil {
		s.cancel()
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
