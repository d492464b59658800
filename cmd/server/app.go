package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/clientdash/internal/config"
	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/handler"
	"github.com/clientdash/internal/logging"
	"github.com/clientdash/internal/metrics"
	"github.com/clientdash/internal/scheduler"
	"github.com/clientdash/internal/secret"
	"github.com/clientdash/internal/service"
	"github.com/clientdash/internal/source"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const schedulerBackoff = 30 * time.Second

// app 汇总进程内共享的依赖。
type app struct {
	cfg     config.AppConfig
	logger  *slog.Logger
	db      *gorm.DB
	box     *secret.Box
	metrics *metrics.Metrics

	citations *service.CitationService
	syncs     *service.SyncService
}

func loadApp(migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DSN(), logger.Warn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if migrate {
		if err := db.Migrate(gdb); err != nil {
			return nil, err
		}
	}

	box, err := secret.NewBox(cfg.CredentialKey)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, db: gdb, box: box, metrics: metrics.New()}
	a.citations = service.NewCitationService(gdb)

	search := source.NewSearchConsoleClient()
	search.SetEndpoint(cfg.SearchConsoleEndpoint)
	search.SetRateLimit(cfg.SearchConsoleRPS)

	llm, err := source.NewLLMFetcher(cfg.LLMAdapter, a.citations)
	if err != nil {
		return nil, err
	}

	a.syncs = service.NewSyncService(gdb, box, search, llm).
		WithObserver(a.metrics).
		WithLogger(log).
		WithOptions(service.SyncOptions{IsolateRowErrors: cfg.SyncIsolateRowErrors})
	return a, nil
}

func (a *app) api() *handler.API {
	return handler.NewAPI(handler.Dependencies{
		DB:              a.db,
		Overview:        service.NewOverviewService(a.db),
		Sync:            a.syncs,
		DataSources:     service.NewDataSourceService(a.db, a.box),
		Websites:        service.NewWebsiteService(a.db),
		Recommendations: service.NewRecommendationService(a.db),
		Keywords:        service.NewKeywordService(a.db),
		Citations:       a.citations,
		Logger:          a.logger,
	})
}

func (a *app) scheduler() *scheduler.Scheduler {
	return scheduler.New(a.syncs, scheduler.Config{
		Concurrency: a.cfg.SchedulerConcurrency,
		MaxAttempts: a.cfg.SchedulerMaxAttempts,
		Backoff:     schedulerBackoff,
	}, a.logger)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
