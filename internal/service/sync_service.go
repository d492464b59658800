package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/source"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncWindowDays 与概览的 30 天窗口保持一致。
const SyncWindowDays = 30

// SyncObserver 接收每次同步的结果，由 metrics.Metrics 实现。
type SyncObserver interface {
	SyncFinished(sourceType, status string, elapsed time.Duration, metricRows, queryRows, pageRows int)
}

// SyncOptions 控制同步的容错行为。
type SyncOptions struct {
	// IsolateRowErrors 为 true 时，单行 query/page 写入失败只计数并记录日志，不中止同步。
	IsolateRowErrors bool
}

// SyncWindow 是同步窗口的 JSON 形式。
type SyncWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SyncResult 汇总一次成功同步写入的数据。
type SyncResult struct {
	RunID         string
	DataSource    db.DataSource
	SourceType    source.Type
	Window        SyncWindow
	SearchMetrics []db.SearchMetric
	LLMMetrics    []db.LLMMetric
	MetricRows    int
	QueryRows     int
	PageRows      int
	FailedRows    int
}

// SyncService 负责从数据源拉取指标并幂等写入。
// 同一数据源的并发同步不互斥：upsert 保证最终收敛，但过程不可线性化。
type SyncService struct {
	db       *gorm.DB
	box      CredentialBox
	search   source.SearchFetcher
	llm      source.LLMFetcher
	observer SyncObserver
	logger   *slog.Logger
	opts     SyncOptions
	now      func() time.Time
}

// NewSyncService 构造 SyncService
func NewSyncService(gdb *gorm.DB, box CredentialBox, search source.SearchFetcher, llm source.LLMFetcher) *SyncService {
	return &SyncService{
		db:     gdb,
		box:    box,
		search: search,
		llm:    llm,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithObserver 挂接指标上报。
func (s *SyncService) WithObserver(o SyncObserver) *SyncService {
	s.observer = o
	return s
}

// WithLogger 替换日志输出。
func (s *SyncService) WithLogger(l *slog.Logger) *SyncService {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithOptions 设置容错选项。
func (s *SyncService) WithOptions(opts SyncOptions) *SyncService {
	s.opts = opts
	return s
}

// WithClock 在测试中固定当前时间。
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	if now != nil {
		s.now = now
	}
	return s
}

// Sync 同步某网站某一类数据源。sourceType 为空时使用 Search Console。
func (s *SyncService) Sync(ctx context.Context, websiteID, sourceType string) (*SyncResult, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	t, err := source.ParseType(sourceType)
	if err != nil {
		return nil, err
	}

	var ds db.DataSource
	err = s.db.WithContext(ctx).
		Where("website_id = ? AND source_type = ? AND is_active = ?", websiteID, string(t), true).
		Order("created_at ASC").
		First(&ds).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active %s source for website", ErrDataSourceNotFound, t)
		}
		return nil, &PersistenceError{Source: t, Op: "load data source", Err: err}
	}

	return s.SyncDataSource(ctx, ds)
}

// SyncDataSource 对已加载的配置执行同步，供调度器和命令行使用。
func (s *SyncService) SyncDataSource(ctx context.Context, ds db.DataSource) (*SyncResult, error) {
	t, err := source.ParseType(ds.SourceType)
	if err != nil {
		return nil, err
	}
	if !ds.IsActive {
		return nil, fmt.Errorf("%w: source %s is inactive", ErrDataSourceNotFound, ds.ID)
	}

	var website db.Website
	if err := s.db.WithContext(ctx).First(&website, "id = ?", ds.WebsiteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebsiteNotFound
		}
		return nil, &PersistenceError{Source: t, Op: "load website", Err: err}
	}

	started := s.now()
	window := source.TrailingWindow(started, SyncWindowDays)
	run := db.SyncRun{
		DataSourceID: ds.ID,
		WebsiteID:    ds.WebsiteID,
		SourceType:   string(t),
		Status:       db.SyncStatusRunning,
		StartedAt:    started,
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, &PersistenceError{Source: t, Op: "record sync run", Err: err}
	}

	log := s.logger.With("run_id", run.ID, "website_id", ds.WebsiteID, "source_type", string(t))
	log.Info("sync started", "start", window.StartDate(), "end", window.EndDate())

	result := &SyncResult{
		RunID:      run.ID,
		DataSource: ds,
		SourceType: t,
		Window:     SyncWindow{Start: window.StartDate(), End: window.EndDate()},
	}
	runErr := s.execute(ctx, log, website, ds, t, window, result)

	finished := s.now()
	run.FinishedAt = &finished
	run.MetricRows = result.MetricRows
	run.QueryRows = result.QueryRows
	run.PageRows = result.PageRows
	run.FailedRows = result.FailedRows
	run.Status = db.SyncStatusSucceeded
	if runErr != nil {
		run.Status = db.SyncStatusFailed
		run.Error = runErr.Error()
	}
	// 上下文可能已被取消，审计记录仍需落库
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Save(&run).Error; err != nil {
		log.Error("record sync run failed", "error", err)
	}
	if s.observer != nil {
		s.observer.SyncFinished(string(t), run.Status, finished.Sub(started), result.MetricRows, result.QueryRows, result.PageRows)
	}

	if runErr != nil {
		log.Error("sync failed", "error", runErr, "metric_rows", result.MetricRows, "query_rows", result.QueryRows, "page_rows", result.PageRows)
		return nil, runErr
	}
	log.Info("sync finished",
		"metric_rows", result.MetricRows,
		"query_rows", result.QueryRows,
		"page_rows", result.PageRows,
		"failed_rows", result.FailedRows,
		"elapsed", finished.Sub(started))
	return result, nil
}

func (s *SyncService) execute(ctx context.Context, log *slog.Logger, website db.Website, ds db.DataSource, t source.Type, w source.Window, result *SyncResult) error {
	creds, err := openCredentials(s.box, ds)
	if err != nil {
		return err
	}

	switch c := creds.(type) {
	case source.SearchConsoleCredentials:
		if s.search == nil {
			return fmt.Errorf("%w: search console adapter not configured", source.ErrUnsupportedSource)
		}
		if err := s.syncSearch(ctx, log, website.ID, c, w, result); err != nil {
			return err
		}
	case source.LLMCredentials:
		if s.llm == nil {
			return fmt.Errorf("%w: llm adapter not configured", source.ErrUnsupportedSource)
		}
		if strings.TrimSpace(website.URL) == "" {
			return &source.ConfigError{Source: t, Field: "website_url", Reason: "is required"}
		}
		target := source.LLMTarget{Provider: t, SiteURL: website.URL, Credentials: c}
		if err := s.syncLLM(ctx, log, website.ID, target, w, result); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", source.ErrUnsupportedSource, t)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&db.DataSource{}).Where("id = ?", ds.ID).Update("last_sync_at", now).Error; err != nil {
		return &PersistenceError{Source: t, Op: "update last sync", Err: err}
	}
	result.DataSource.LastSyncAt = &now

	return s.reload(ctx, website.ID, t, w, result)
}

func (s *SyncService) syncSearch(ctx context.Context, log *slog.Logger, websiteID string, creds source.SearchConsoleCredentials, w source.Window, result *SyncResult) error {
	t := source.TypeSearchConsole

	rows, err := s.search.FetchMetrics(ctx, creds, w)
	if err != nil {
		return err
	}
	metrics := make([]db.SearchMetric, 0, len(rows))
	for _, row := range rows {
		metrics = append(metrics, db.SearchMetric{
			WebsiteID:       websiteID,
			MetricDate:      row.Date,
			Clicks:          row.Clicks,
			Impressions:     row.Impressions,
			CTR:             rowCTR(row),
			AveragePosition: row.Position,
		})
	}
	if len(metrics) > 0 {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "website_id"}, {Name: "metric_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"clicks", "impressions", "ctr", "average_position", "updated_at"}),
		}).Create(&metrics).Error
		if err != nil {
			return &PersistenceError{Source: t, Op: "upsert search metrics", Err: err}
		}
	}
	result.MetricRows = len(metrics)

	queryRows, err := s.search.FetchQueries(ctx, creds, w)
	if err != nil {
		return err
	}
	queries := make([]db.SearchQuery, 0, len(queryRows))
	for _, row := range queryRows {
		queries = append(queries, db.SearchQuery{
			WebsiteID:       websiteID,
			Query:           row.Key,
			MetricDate:      row.Date,
			Clicks:          row.Clicks,
			Impressions:     row.Impressions,
			CTR:             rowCTR(row),
			AveragePosition: row.Position,
		})
	}
	ok, failed, err := upsertEach(ctx, s.db, queries, clause.OnConflict{
		Columns:   []clause.Column{{Name: "website_id"}, {Name: "query"}, {Name: "metric_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"clicks", "impressions", "ctr", "average_position", "updated_at"}),
	}, s.opts.IsolateRowErrors, log)
	result.QueryRows, result.FailedRows = ok, result.FailedRows+failed
	if err != nil {
		return &PersistenceError{Source: t, Op: "upsert search queries", Err: err}
	}

	pageRows, err := s.search.FetchPages(ctx, creds, w)
	if err != nil {
		return err
	}
	pages := make([]db.SearchPage, 0, len(pageRows))
	for _, row := range pageRows {
		pages = append(pages, db.SearchPage{
			WebsiteID:       websiteID,
			PageURL:         row.Key,
			MetricDate:      row.Date,
			Clicks:          row.Clicks,
			Impressions:     row.Impressions,
			CTR:             rowCTR(row),
			AveragePosition: row.Position,
		})
	}
	ok, failed, err = upsertEach(ctx, s.db, pages, clause.OnConflict{
		Columns:   []clause.Column{{Name: "website_id"}, {Name: "page_url"}, {Name: "metric_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"clicks", "impressions", "ctr", "average_position", "updated_at"}),
	}, s.opts.IsolateRowErrors, log)
	result.PageRows, result.FailedRows = ok, result.FailedRows+failed
	if err != nil {
		return &PersistenceError{Source: t, Op: "upsert search pages", Err: err}
	}
	return nil
}

func (s *SyncService) syncLLM(ctx context.Context, log *slog.Logger, websiteID string, target source.LLMTarget, w source.Window, result *SyncResult) error {
	t := target.Provider

	rows, err := s.llm.FetchMetrics(ctx, target, w)
	if err != nil {
		return err
	}
	metrics := make([]db.LLMMetric, 0, len(rows))
	for _, row := range rows {
		metrics = append(metrics, db.LLMMetric{
			WebsiteID:     websiteID,
			Provider:      string(t),
			MetricDate:    row.Date,
			Mentions:      nonNegative(row.Mentions),
			Citations:     nonNegative(row.Citations),
			ClickThroughs: nonNegative(row.ClickThroughs),
			RankingScore:  source.ClampScore(row.RankingScore),
		})
	}
	if len(metrics) > 0 {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "website_id"}, {Name: "provider"}, {Name: "metric_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"mentions", "citations", "click_throughs", "ranking_score", "updated_at"}),
		}).Create(&metrics).Error
		if err != nil {
			return &PersistenceError{Source: t, Op: "upsert llm metrics", Err: err}
		}
	}
	result.MetricRows = len(metrics)

	queryRows, err := s.llm.FetchQueries(ctx, target, w)
	if err != nil {
		return err
	}
	queries := make([]db.LLMQuery, 0, len(queryRows))
	for _, row := range queryRows {
		queries = append(queries, db.LLMQuery{
			WebsiteID:  websiteID,
			Provider:   string(t),
			Query:      row.Query,
			MetricDate: row.Date,
			Mentions:   nonNegative(row.Mentions),
			Citations:  nonNegative(row.Citations),
		})
	}
	ok, failed, err := upsertEach(ctx, s.db, queries, clause.OnConflict{
		Columns:   []clause.Column{{Name: "website_id"}, {Name: "provider"}, {Name: "query"}, {Name: "metric_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"mentions", "citations", "updated_at"}),
	}, s.opts.IsolateRowErrors, log)
	result.QueryRows, result.FailedRows = ok, result.FailedRows+failed
	if err != nil {
		return &PersistenceError{Source: t, Op: "upsert llm queries", Err: err}
	}
	return nil
}

// reload 读回窗口内的指标行，返回给调用方做乐观更新。
func (s *SyncService) reload(ctx context.Context, websiteID string, t source.Type, w source.Window, result *SyncResult) error {
	query := s.db.WithContext(ctx).
		Where("website_id = ? AND metric_date >= ? AND metric_date <= ?", websiteID, w.StartDate(), w.EndDate()).
		Order("metric_date ASC")

	if t == source.TypeSearchConsole {
		result.SearchMetrics = []db.SearchMetric{}
		if err := query.Find(&result.SearchMetrics).Error; err != nil {
			return &PersistenceError{Source: t, Op: "reload search metrics", Err: err}
		}
		return nil
	}

	result.LLMMetrics = []db.LLMMetric{}
	if err := query.Where("provider = ?", string(t)).Find(&result.LLMMetrics).Error; err != nil {
		return &PersistenceError{Source: t, Op: "reload llm metrics", Err: err}
	}
	return nil
}

// ActiveSources 列出网站下启用中的数据源。
func (s *SyncService) ActiveSources(ctx context.Context, websiteID string) ([]db.DataSource, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	sources := []db.DataSource{}
	if err := s.db.WithContext(ctx).
		Where("website_id = ? AND is_active = ?", websiteID, true).
		Order("created_at ASC").
		Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	return sources, nil
}

// DueSources 返回某同步频率下全部启用中的数据源（调度器使用）。
func (s *SyncService) DueSources(ctx context.Context, frequency string) ([]db.DataSource, error) {
	var sources []db.DataSource
	if err := s.db.WithContext(ctx).
		Where("sync_frequency = ? AND is_active = ?", frequency, true).
		Order("created_at ASC").
		Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("list due sources: %w", err)
	}
	return sources, nil
}

// RecentRuns 返回网站最近的同步记录，最新的在前。
func (s *SyncService) RecentRuns(ctx context.Context, websiteID string, limit int) ([]db.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	runs := []db.SyncRun{}
	if err := s.db.WithContext(ctx).
		Where("website_id = ?", websiteID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return runs, nil
}

// upsertEach 逐行 upsert。isolate 为 false 时遇错即停。
func upsertEach[T any](ctx context.Context, gdb *gorm.DB, rows []T, conflict clause.OnConflict, isolate bool, log *slog.Logger) (int, int, error) {
	ok, failed := 0, 0
	for i := range rows {
		if err := gdb.WithContext(ctx).Clauses(conflict).Create(&rows[i]).Error; err != nil {
			if !isolate || ctx.Err() != nil {
				return ok, failed, err
			}
			failed++
			log.Warn("row upsert failed", "index", i, "error", err)
			continue
		}
		ok++
	}
	return ok, failed, nil
}

func rowCTR(row source.SearchRow) float64 {
	if row.CTR == 0 && row.Impressions > 0 {
		return float64(row.Clicks) / float64(row.Impressions)
	}
	return row.CTR
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
