package handler

import (
	"log/slog"

	"github.com/clientdash/internal/service"
	"gorm.io/gorm"
)

// Dependencies 汇总 handler 需要的服务实例。
type Dependencies struct {
	DB              *gorm.DB
	Overview        *service.OverviewService
	Sync            *service.SyncService
	DataSources     *service.DataSourceService
	Websites        *service.WebsiteService
	Recommendations *service.RecommendationService
	Keywords        *service.KeywordService
	Citations       *service.CitationService
	Logger          *slog.Logger
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db              *gorm.DB
	overview        overviewProvider
	syncs           syncRunner
	sources         *service.DataSourceService
	websites        *service.WebsiteService
	recommendations *service.RecommendationService
	keywords        *service.KeywordService
	citations       *service.CitationService
	logger          *slog.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		db:              deps.DB,
		sources:         deps.DataSources,
		websites:        deps.Websites,
		recommendations: deps.Recommendations,
		keywords:        deps.Keywords,
		citations:       deps.Citations,
		logger:          logger,
	}
	if deps.Overview != nil {
		a.overview = deps.Overview
	}
	if deps.Sync != nil {
		a.syncs = deps.Sync
	}
	return a
}

func (a *API) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}
