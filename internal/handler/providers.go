package handler

import (
	"context"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/service"
)

type overviewProvider interface {
	ComputeOverview(ctx context.Context, websiteID string) (service.Overview, error)
}

type syncRunner interface {
	Sync(ctx context.Context, websiteID, sourceType string) (*service.SyncResult, error)
	ActiveSources(ctx context.Context, websiteID string) ([]db.DataSource, error)
	RecentRuns(ctx context.Context, websiteID string, limit int) ([]db.SyncRun, error)
}

var (
	_ overviewProvider = (*service.OverviewService)(nil)
	_ syncRunner       = (*service.SyncService)(nil)
)
