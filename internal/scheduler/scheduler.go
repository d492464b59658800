// Package scheduler runs the periodic syncs for data sources according to
// their sync_frequency. It is optional: manual syncs go through the HTTP API
// or the CLI and never touch this package.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/service"
	"github.com/clientdash/internal/source"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Specs maps each sync frequency to its cron descriptor.
var Specs = map[string]string{
	db.SyncFrequencyHourly: "@hourly",
	db.SyncFrequencyDaily:  "@daily",
	db.SyncFrequencyWeekly: "@weekly",
}

// Syncer is the part of service.SyncService the scheduler drives.
type Syncer interface {
	DueSources(ctx context.Context, frequency string) ([]db.DataSource, error)
	SyncDataSource(ctx context.Context, ds db.DataSource) (*service.SyncResult, error)
}

var _ Syncer = (*service.SyncService)(nil)

// Config bounds fan-out and retries for one tick.
type Config struct {
	Concurrency int
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// Summary reports the outcome of one frequency tick.
type Summary struct {
	Frequency string
	Total     int
	Succeeded int
	Failed    int
}

// Scheduler wraps robfig/cron and owns one entry per sync frequency.
type Scheduler struct {
	cron   *cron.Cron
	syncer Syncer
	cfg    Config
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Scheduler. Zero Config values fall back to one worker, one
// attempt and a 30s backoff.
func New(syncer Syncer, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cronLog := cronLogger{logger: logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		syncer: syncer,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Start registers one job per frequency and starts the cron loop. Jobs run
// with ctx, so cancelling it aborts in-flight syncs.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, frequency := range []string{db.SyncFrequencyHourly, db.SyncFrequencyDaily, db.SyncFrequencyWeekly} {
		if _, err := s.cron.AddFunc(Specs[frequency], func() {
			if _, err := s.RunFrequency(ctx, frequency); err != nil {
				s.logger.Error("scheduled sync failed", "frequency", frequency, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("cron.AddFunc %s: %w", frequency, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "concurrency", s.cfg.Concurrency, "max_attempts", s.cfg.MaxAttempts)
	return nil
}

// Stop stops the cron loop; the returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.logger.Info("scheduler stopped")
	return done
}

// RunFrequency syncs every active source of the given frequency. A failing
// source does not stop the others; the error return covers only loading the
// source list.
func (s *Scheduler) RunFrequency(ctx context.Context, frequency string) (Summary, error) {
	summary := Summary{Frequency: frequency}

	sources, err := s.syncer.DueSources(ctx, frequency)
	if err != nil {
		return summary, fmt.Errorf("load due sources: %w", err)
	}
	summary.Total = len(sources)
	if len(sources) == 0 {
		s.logger.Debug("no sources due", "frequency", frequency)
		return summary, nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, ds := range sources {
		g.Go(func() error {
			err := s.syncWithRetry(ctx, ds)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				s.logger.Warn("source sync gave up",
					"data_source_id", ds.ID, "website_id", ds.WebsiteID, "source_type", ds.SourceType, "error", err)
				return nil
			}
			summary.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("scheduled sync finished",
		"frequency", frequency, "total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

// syncWithRetry retries adapter failures only. Configuration and lookup
// errors would fail the same way on every attempt.
func (s *Scheduler) syncWithRetry(ctx context.Context, ds db.DataSource) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if _, err = s.syncer.SyncDataSource(ctx, ds); err == nil {
			return nil
		}
		if !Retryable(err) || attempt == s.cfg.MaxAttempts {
			return err
		}
		wait := s.cfg.Backoff * time.Duration(attempt)
		s.logger.Info("retrying sync", "data_source_id", ds.ID, "attempt", attempt, "wait", wait, "error", err)
		if sleepErr := s.sleep(ctx, wait); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
	return err
}

// Retryable reports whether err came from an upstream adapter.
func Retryable(err error) bool {
	var adapterErr *source.AdapterError
	return errors.As(err, &adapterErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
