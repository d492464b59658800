package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/source"
	"gorm.io/gorm"
)

type stubSearch struct {
	metrics  []source.SearchRow
	queries  []source.SearchRow
	pages    []source.SearchRow
	queryErr error
	windows  []source.Window
}

func (s *stubSearch) FetchMetrics(_ context.Context, _ source.SearchConsoleCredentials, w source.Window) ([]source.SearchRow, error) {
	s.windows = append(s.windows, w)
	return s.metrics, nil
}

func (s *stubSearch) FetchQueries(context.Context, source.SearchConsoleCredentials, source.Window) ([]source.SearchRow, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.queries, nil
}

func (s *stubSearch) FetchPages(context.Context, source.SearchConsoleCredentials, source.Window) ([]source.SearchRow, error) {
	return s.pages, nil
}

type recordingObserver struct {
	statuses []string
}

func (o *recordingObserver) SyncFinished(_, status string, _ time.Duration, _, _, _ int) {
	o.statuses = append(o.statuses, status)
}

const syncNow = "2024-02-01T08:00:00Z"

func setupSearchSource(t *testing.T, gdb *gorm.DB) *db.Website {
	t.Helper()
	website := seedWebsite(t, gdb, "https://example.com")
	_, err := NewDataSourceService(gdb, newTestBox(t)).Create(context.Background(), DataSourceInput{
		WebsiteID:   website.ID,
		SourceType:  string(source.TypeSearchConsole),
		Credentials: map[string]string{"access_token": "tok", "property_url": "https://example.com/"},
	})
	if err != nil {
		t.Fatalf("create data source: %v", err)
	}
	return website
}

func TestSyncSearchConsoleIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	website := setupSearchSource(t, gdb)

	stub := &stubSearch{
		metrics: []source.SearchRow{
			{Date: "2024-01-30", Clicks: 10, Impressions: 100, CTR: 0.1, Position: 4},
			{Date: "2024-01-31", Clicks: 20, Impressions: 100, CTR: 0.2, Position: 6},
		},
		queries: []source.SearchRow{
			{Key: "seo tips", Date: "2024-01-30", Clicks: 3, Impressions: 30, CTR: 0.1, Position: 2},
			{Key: "seo tools", Date: "2024-01-31", Clicks: 1, Impressions: 10, CTR: 0.1, Position: 8},
		},
		pages: []source.SearchRow{
			{Key: "https://example.com/blog", Date: "2024-01-31", Clicks: 4, Impressions: 40, CTR: 0.1, Position: 3},
		},
	}
	observer := &recordingObserver{}
	svc := NewSyncService(gdb, newTestBox(t), stub, nil).WithClock(fixedClock(syncNow)).WithObserver(observer)

	first, err := svc.Sync(context.Background(), website.ID, "")
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Window.Start != "2024-01-02" || first.Window.End != "2024-01-31" {
		t.Fatalf("unexpected window: %+v", first.Window)
	}
	if len(first.SearchMetrics) != 2 || first.QueryRows != 2 || first.PageRows != 1 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	stub.metrics[1].Clicks = 25
	if _, err := svc.Sync(context.Background(), website.ID, "google_search_console"); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	var metricCount, queryCount, pageCount int64
	gdb.Model(&db.SearchMetric{}).Count(&metricCount)
	gdb.Model(&db.SearchQuery{}).Count(&queryCount)
	gdb.Model(&db.SearchPage{}).Count(&pageCount)
	if metricCount != 2 || queryCount != 2 || pageCount != 1 {
		t.Fatalf("expected 2/2/1 rows after re-sync, got %d/%d/%d", metricCount, queryCount, pageCount)
	}

	var latest db.SearchMetric
	if err := gdb.Where("website_id = ? AND metric_date = ?", website.ID, "2024-01-31").First(&latest).Error; err != nil {
		t.Fatalf("load metric: %v", err)
	}
	if latest.Clicks != 25 {
		t.Fatalf("expected overwritten clicks 25, got %d", latest.Clicks)
	}

	var ds db.DataSource
	gdb.First(&ds, "website_id = ?", website.ID)
	if ds.LastSyncAt == nil {
		t.Fatal("expected last_sync_at to be set")
	}

	var runs []db.SyncRun
	gdb.Find(&runs)
	if len(runs) != 2 || runs[0].Status != db.SyncStatusSucceeded || runs[1].MetricRows != 2 {
		t.Fatalf("unexpected sync runs: %+v", runs)
	}
	if len(observer.statuses) != 2 || observer.statuses[0] != db.SyncStatusSucceeded {
		t.Fatalf("unexpected observer statuses: %v", observer.statuses)
	}
}

func TestSyncRecomputesMissingCTR(t *testing.T) {
	gdb := newTestDB(t)
	website := setupSearchSource(t, gdb)
	stub := &stubSearch{metrics: []source.SearchRow{{Date: "2024-01-20", Clicks: 15, Impressions: 100, Position: 3}}}

	result, err := NewSyncService(gdb, newTestBox(t), stub, nil).WithClock(fixedClock(syncNow)).Sync(context.Background(), website.ID, "")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := result.SearchMetrics[0].CTR; got != 0.15 {
		t.Fatalf("expected ctr 0.15, got %v", got)
	}
}

func TestSyncInputErrors(t *testing.T) {
	gdb := newTestDB(t)
	website := setupSearchSource(t, gdb)
	svc := NewSyncService(gdb, newTestBox(t), &stubSearch{}, nil)

	if _, err := svc.Sync(context.Background(), " ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Sync(context.Background(), website.ID, "bing"); !errors.Is(err, source.ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource, got %v", err)
	}
	if _, err := svc.Sync(context.Background(), website.ID, "openai"); !errors.Is(err, ErrDataSourceNotFound) {
		t.Fatalf("expected ErrDataSourceNotFound, got %v", err)
	}
}

func TestSyncSkipsInactiveSource(t *testing.T) {
	gdb := newTestDB(t)
	website := setupSearchSource(t, gdb)
	gdb.Model(&db.DataSource{}).Where("website_id = ?", website.ID).Update("is_active", false)

	_, err := NewSyncService(gdb, newTestBox(t), &stubSearch{}, nil).Sync(context.Background(), website.ID, "")
	if !errors.Is(err, ErrDataSourceNotFound) {
		t.Fatalf("expected ErrDataSourceNotFound, got %v", err)
	}
}

func TestSyncAdapterFailureKeepsEarlierRows(t *testing.T) {
	gdb := newTestDB(t)
	website := setupSearchSource(t, gdb)
	stub := &stubSearch{
		metrics:  []source.SearchRow{{Date: "2024-01-30", Clicks: 1, Impressions: 10, CTR: 0.1, Position: 2}},
		queryErr: &source.AdapterError{Source: source.TypeSearchConsole, Op: "fetch queries", StatusCode: 503, Err: errors.New("unavailable")},
	}
	observer := &recordingObserver{}
	svc := NewSyncService(gdb, newTestBox(t), stub, nil).WithClock(fixedClock(syncNow)).WithObserver(observer)

	_, err := svc.Sync(context.Background(), website.ID, "")
	var adapterErr *source.AdapterError
	if !errors.As(err, &adapterErr) || adapterErr.StatusCode != 503 {
		t.Fatalf("expected adapter error, got %v", err)
	}

	var metricCount int64
	gdb.Model(&db.SearchMetric{}).Count(&metricCount)
	if metricCount != 1 {
		t.Fatalf("expected metrics written before failure to stay, got %d", metricCount)
	}

	var run db.SyncRun
	gdb.First(&run)
	if run.Status != db.SyncStatusFailed || run.Error == "" || run.FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(observer.statuses) != 1 || observer.statuses[0] != db.SyncStatusFailed {
		t.Fatalf("unexpected observer statuses: %v", observer.statuses)
	}

	var ds db.DataSource
	gdb.First(&ds, "website_id = ?", website.ID)
	if ds.LastSyncAt != nil {
		t.Fatal("last_sync_at must not move on failure")
	}
}

func TestSyncRowIsolation(t *testing.T) {
	gdb := newTestDB(t)
	website := setupSearchSource(t, gdb)
	err := gdb.Callback().Create().Before("gorm:create").Register("test:fail_bad_query", func(tx *gorm.DB) {
		if q, ok := tx.Statement.Dest.(*db.SearchQuery); ok && q.Query == "bad" {
			tx.AddError(errors.New("constraint violated"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	stub := &stubSearch{queries: []source.SearchRow{
		{Key: "good", Date: "2024-01-30", Clicks: 1, Impressions: 2},
		{Key: "bad", Date: "2024-01-30", Clicks: 1, Impressions: 2},
		{Key: "also good", Date: "2024-01-30", Clicks: 1, Impressions: 2},
	}}

	strict := NewSyncService(gdb, newTestBox(t), stub, nil).WithClock(fixedClock(syncNow))
	_, err = strict.Sync(context.Background(), website.ID, "")
	var persistErr *PersistenceError
	if !errors.As(err, &persistErr) || persistErr.Source != source.TypeSearchConsole {
		t.Fatalf("expected persistence error, got %v", err)
	}

	isolated := NewSyncService(gdb, newTestBox(t), stub, nil).WithClock(fixedClock(syncNow)).WithOptions(SyncOptions{IsolateRowErrors: true})
	result, err := isolated.Sync(context.Background(), website.ID, "")
	if err != nil {
		t.Fatalf("isolated sync: %v", err)
	}
	if result.QueryRows != 2 || result.FailedRows != 1 {
		t.Fatalf("expected 2 ok / 1 failed, got %d / %d", result.QueryRows, result.FailedRows)
	}
}

func TestSyncRejectsUnreadableCredentials(t *testing.T) {
	gdb := newTestDB(t)
	website := seedWebsite(t, gdb, "https://example.com")
	ds := db.DataSource{WebsiteID: website.ID, SourceType: "openai", SourceName: "OpenAI", Credentials: "plaintext", IsActive: true, SyncFrequency: "daily"}
	if err := gdb.Create(&ds).Error; err != nil {
		t.Fatalf("create source: %v", err)
	}

	_, err := NewSyncService(gdb, newTestBox(t), nil, source.NewSimulatedLLM()).Sync(context.Background(), website.ID, "openai")
	if !errors.Is(err, source.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSyncSimulatedLLM(t *testing.T) {
	gdb := newTestDB(t)
	website := seedWebsite(t, gdb, "https://www.example.com")
	_, err := NewDataSourceService(gdb, newTestBox(t)).Create(context.Background(), DataSourceInput{
		WebsiteID:   website.ID,
		SourceType:  "perplexity",
		Credentials: map[string]string{"api_key": "pplx-1"},
	})
	if err != nil {
		t.Fatalf("create data source: %v", err)
	}

	svc := NewSyncService(gdb, newTestBox(t), nil, source.NewSimulatedLLM()).WithClock(fixedClock(syncNow))
	for i := 0; i < 2; i++ {
		result, err := svc.Sync(context.Background(), website.ID, "perplexity")
		if err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
		if len(result.LLMMetrics) != SyncWindowDays || result.QueryRows != 5 {
			t.Fatalf("unexpected result: metrics=%d queries=%d", len(result.LLMMetrics), result.QueryRows)
		}
	}

	var metricCount, queryCount int64
	gdb.Model(&db.LLMMetric{}).Count(&metricCount)
	gdb.Model(&db.LLMQuery{}).Count(&queryCount)
	if metricCount != SyncWindowDays || queryCount != 5 {
		t.Fatalf("expected %d metrics and 5 queries, got %d and %d", SyncWindowDays, metricCount, queryCount)
	}
}

func TestSyncMonitoredLLM(t *testing.T) {
	gdb := newTestDB(t)
	website := seedWebsite(t, gdb, "https://example.com")
	_, err := NewDataSourceService(gdb, newTestBox(t)).Create(context.Background(), DataSourceInput{
		WebsiteID:   website.ID,
		SourceType:  "claude",
		Credentials: map[string]string{"api_key": "sk-ant"},
	})
	if err != nil {
		t.Fatalf("create data source: %v", err)
	}

	citations := NewCitationService(gdb)
	at := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	for _, ev := range []CitationInput{
		{Provider: "claude", SiteURL: "https://www.example.com/page", Query: "seo tips", EventType: "citation", RankingScore: floatPtr(70), OccurredAt: at},
		{Provider: "claude", SiteURL: "example.com", Query: "seo tips", EventType: "mention", RankingScore: floatPtr(90), OccurredAt: at},
		{Provider: "openai", SiteURL: "example.com", Query: "other", EventType: "citation", OccurredAt: at},
	} {
		if _, err := citations.Record(context.Background(), ev); err != nil {
			t.Fatalf("record event: %v", err)
		}
	}

	svc := NewSyncService(gdb, newTestBox(t), nil, source.NewMonitoredLLM(citations)).WithClock(fixedClock(syncNow))
	result, err := svc.Sync(context.Background(), website.ID, "claude")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(result.LLMMetrics) != 1 {
		t.Fatalf("expected one metric day, got %d", len(result.LLMMetrics))
	}
	m := result.LLMMetrics[0]
	if m.MetricDate != "2024-01-20" || m.Mentions != 2 || m.Citations != 1 || m.RankingScore != 80 {
		t.Fatalf("unexpected metric: %+v", m)
	}
}
