// Package seed 生成本地演示数据：一个租户、一个网站、四路 LLM 数据源和若干关键词，
// 并用模拟适配器完成首次同步。
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/service"
	"github.com/clientdash/internal/source"
	"gorm.io/gorm"
)

const (
	demoCompany = "Demo Agency"
	demoURL     = "https://demo.clientdash.example"
)

var demoKeywords = []struct {
	keyword  string
	previous int
	current  int
	volume   int
}{
	{"client reporting dashboard", 14, 6, 1900},
	{"seo reporting tool", 9, 4, 3600},
	{"white label seo report", 5, 8, 880},
	{"llm visibility tracking", 22, 11, 320},
	{"ai search citations", 7, 3, 590},
}

// Result 描述一次 seed 的结果。
type Result struct {
	ClientID        string
	WebsiteID       string
	Skipped         bool
	Sources         int
	Keywords        int
	Recommendations int
}

// Run 写入演示数据；演示租户已存在时直接跳过。
func Run(ctx context.Context, gdb *gorm.DB, box service.CredentialBox, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var existing db.Client
	err := gdb.WithContext(ctx).Where("company_name = ?", demoCompany).First(&existing).Error
	switch {
	case err == nil:
		var website db.Website
		gdb.WithContext(ctx).Where("client_id = ?", existing.ID).First(&website)
		logger.Info("demo tenant already exists, skipping", "client_id", existing.ID)
		return &Result{ClientID: existing.ID, WebsiteID: website.ID, Skipped: true}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup demo client: %w", err)
	}

	websites := service.NewWebsiteService(gdb)
	client, err := websites.CreateClient(ctx, service.ClientInput{CompanyName: demoCompany, SubscriptionTier: "premium"})
	if err != nil {
		return nil, err
	}
	website, err := websites.CreateWebsite(ctx, service.WebsiteInput{ClientID: client.ID, URL: demoURL, Name: "Demo site"})
	if err != nil {
		return nil, err
	}
	result := &Result{ClientID: client.ID, WebsiteID: website.ID}

	sources := service.NewDataSourceService(gdb, box)
	syncs := service.NewSyncService(gdb, box, nil, source.NewSimulatedLLM()).WithLogger(logger)
	for _, provider := range source.LLMProviders() {
		if provider == source.TypeCustom {
			continue
		}
		if _, err := sources.Create(ctx, service.DataSourceInput{
			WebsiteID:   website.ID,
			SourceType:  string(provider),
			Credentials: map[string]string{"api_key": "demo-" + string(provider)},
		}); err != nil {
			return nil, fmt.Errorf("create %s source: %w", provider, err)
		}
		if _, err := syncs.Sync(ctx, website.ID, string(provider)); err != nil {
			return nil, fmt.Errorf("sync %s: %w", provider, err)
		}
		result.Sources++
	}

	// 上报一周前和今天两次，让 previous_rank 有值
	keywords := service.NewKeywordService(gdb)
	today := time.Now().UTC()
	reportDates := []string{db.FormatDate(today.AddDate(0, 0, -7)), db.FormatDate(today)}
	for _, kw := range demoKeywords {
		for i, rank := range []int{kw.previous, kw.current} {
			if _, err := keywords.Track(ctx, service.KeywordInput{
				WebsiteID:    website.ID,
				Keyword:      kw.keyword,
				Rank:         &rank,
				SearchVolume: kw.volume,
				MetricDate:   reportDates[i],
			}); err != nil {
				return nil, fmt.Errorf("track keyword %q: %w", kw.keyword, err)
			}
		}
		result.Keywords++
	}

	recs, err := service.NewRecommendationService(gdb).GenerateForWebsite(ctx, website.ID)
	if err != nil {
		return nil, err
	}
	result.Recommendations = len(recs)

	logger.Info("demo data created",
		"client_id", client.ID, "website_id", website.ID,
		"sources", result.Sources, "keywords", result.Keywords, "recommendations", result.Recommendations)
	return result, nil
}
