package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/source"
	"gorm.io/gorm"
)

const (
	overviewWindowDays   = 30
	overviewKeywordLimit = 100
	topKeywordLimit      = 10
	topKeywordMaxRank    = 10
)

// SearchTrend 为环比百分比；Position 已反转，正数表示排名变好。
type SearchTrend struct {
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// SearchOverview 汇总 Search Console 指标。
// SampleCount 为 0 时 AveragePosition 的 0 表示无数据，而不是排名第 0。
type SearchOverview struct {
	TotalClicks         int64       `json:"total_clicks"`
	TotalImpressions    int64       `json:"total_impressions"`
	AverageCTR          float64     `json:"average_ctr"`
	AveragePosition     float64     `json:"average_position"`
	SampleCount         int         `json:"sample_count"`
	PreviousSampleCount int         `json:"previous_sample_count"`
	Trend               SearchTrend `json:"trend"`
}

// ProviderTotals 是单个 LLM 提供方的合计。
type ProviderTotals struct {
	Mentions      int64 `json:"mentions"`
	Citations     int64 `json:"citations"`
	ClickThroughs int64 `json:"click_throughs"`
}

// LLMTrend 为 LLM 指标的环比百分比。
type LLMTrend struct {
	Mentions      float64 `json:"mentions"`
	Citations     float64 `json:"citations"`
	ClickThroughs float64 `json:"click_throughs"`
}

// LLMOverview 汇总 LLM 引用指标，ByProvider 始终包含全部提供方。
type LLMOverview struct {
	TotalMentions       int64                     `json:"total_mentions"`
	TotalCitations      int64                     `json:"total_citations"`
	TotalClickThroughs  int64                     `json:"total_click_throughs"`
	AverageRankingScore float64                   `json:"average_ranking_score"`
	SampleCount         int                       `json:"sample_count"`
	ByProvider          map[string]ProviderTotals `json:"by_provider"`
	Trend               LLMTrend                  `json:"trend"`
}

// KeywordOverview 关键词排名统计。
type KeywordOverview struct {
	TotalTracked        int          `json:"total_tracked"`
	RankingImprovements int          `json:"ranking_improvements"`
	RankingDeclines     int          `json:"ranking_declines"`
	TopKeywords         []db.Keyword `json:"top_keywords"`
}

// RecommendationOverview 建议状态统计；Critical 与状态无关。
type RecommendationOverview struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Critical   int `json:"critical"`
}

// Overview 是仪表盘概览，每次请求重新计算，不落库。
type Overview struct {
	Google          SearchOverview         `json:"google"`
	LLM             LLMOverview            `json:"llm"`
	Keywords        KeywordOverview        `json:"keywords"`
	Recommendations RecommendationOverview `json:"recommendations"`
}

// OverviewInput 是计算概览所需的全部行。
type OverviewInput struct {
	SearchCurrent   []db.SearchMetric
	SearchPrevious  []db.SearchMetric
	LLMCurrent      []db.LLMMetric
	LLMPrevious     []db.LLMMetric
	Keywords        []db.Keyword
	Recommendations []db.Recommendation
}

// OverviewService 读取指标并归约为概览。
type OverviewService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOverviewService 构造 OverviewService
func NewOverviewService(gdb *gorm.DB) *OverviewService {
	return &OverviewService{db: gdb, now: time.Now}
}

// WithClock 在测试中固定“今天”。
func (s *OverviewService) WithClock(now func() time.Time) *OverviewService {
	if now != nil {
		s.now = now
	}
	return s
}

// ComputeOverview 计算网站当前 30 天与前 30 天的概览。
func (s *OverviewService) ComputeOverview(ctx context.Context, websiteID string) (Overview, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return Overview{}, invalidInput("website_id is required")
	}

	gdb := s.db.WithContext(ctx)
	var website db.Website
	if err := gdb.First(&website, "id = ?", websiteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Overview{}, ErrWebsiteNotFound
		}
		return Overview{}, fmt.Errorf("load website: %w", err)
	}

	today := db.FormatDate(s.now())
	todayDate, _ := db.ParseDate(today)
	currentStart := db.FormatDate(todayDate.AddDate(0, 0, -overviewWindowDays))
	previousStart := db.FormatDate(todayDate.AddDate(0, 0, -2*overviewWindowDays))

	var in OverviewInput
	if err := gdb.Where("website_id = ? AND metric_date >= ? AND metric_date < ?", websiteID, currentStart, today).
		Order("metric_date DESC").Find(&in.SearchCurrent).Error; err != nil {
		return Overview{}, fmt.Errorf("load search metrics: %w", err)
	}
	if err := gdb.Where("website_id = ? AND metric_date >= ? AND metric_date < ?", websiteID, previousStart, currentStart).
		Order("metric_date DESC").Find(&in.SearchPrevious).Error; err != nil {
		return Overview{}, fmt.Errorf("load previous search metrics: %w", err)
	}
	if err := gdb.Where("website_id = ? AND metric_date >= ? AND metric_date < ?", websiteID, currentStart, today).
		Order("metric_date DESC").Find(&in.LLMCurrent).Error; err != nil {
		return Overview{}, fmt.Errorf("load llm metrics: %w", err)
	}
	if err := gdb.Where("website_id = ? AND metric_date >= ? AND metric_date < ?", websiteID, previousStart, currentStart).
		Order("metric_date DESC").Find(&in.LLMPrevious).Error; err != nil {
		return Overview{}, fmt.Errorf("load previous llm metrics: %w", err)
	}
	if err := gdb.Where("website_id = ?", websiteID).
		Order("metric_date DESC").Limit(overviewKeywordLimit).Find(&in.Keywords).Error; err != nil {
		return Overview{}, fmt.Errorf("load keywords: %w", err)
	}
	if err := gdb.Where("website_id = ?", websiteID).Find(&in.Recommendations).Error; err != nil {
		return Overview{}, fmt.Errorf("load recommendations: %w", err)
	}

	return BuildOverview(in), nil
}

// BuildOverview 是纯函数归约，空输入得到全零概览。
func BuildOverview(in OverviewInput) Overview {
	return Overview{
		Google:          buildSearchOverview(in.SearchCurrent, in.SearchPrevious),
		LLM:             buildLLMOverview(in.LLMCurrent, in.LLMPrevious),
		Keywords:        buildKeywordOverview(in.Keywords),
		Recommendations: buildRecommendationOverview(in.Recommendations),
	}
}

type searchTotals struct {
	clicks, impressions int64
	ctr, position       float64
	samples             int
}

func sumSearch(rows []db.SearchMetric) searchTotals {
	var t searchTotals
	var positionSum float64
	for _, row := range rows {
		t.clicks += row.Clicks
		t.impressions += row.Impressions
		positionSum += row.AveragePosition
	}
	t.samples = len(rows)
	if t.impressions > 0 {
		t.ctr = float64(t.clicks) / float64(t.impressions)
	}
	if t.samples > 0 {
		t.position = positionSum / float64(t.samples)
	}
	return t
}

func buildSearchOverview(current, previous []db.SearchMetric) SearchOverview {
	cur, prev := sumSearch(current), sumSearch(previous)
	return SearchOverview{
		TotalClicks:         cur.clicks,
		TotalImpressions:    cur.impressions,
		AverageCTR:          cur.ctr,
		AveragePosition:     cur.position,
		SampleCount:         cur.samples,
		PreviousSampleCount: prev.samples,
		Trend: SearchTrend{
			Clicks:      percentChange(float64(cur.clicks), float64(prev.clicks)),
			Impressions: percentChange(float64(cur.impressions), float64(prev.impressions)),
			CTR:         percentChange(cur.ctr, prev.ctr),
			Position:    invertedPercentChange(cur.position, prev.position),
		},
	}
}

func buildLLMOverview(current, previous []db.LLMMetric) LLMOverview {
	out := LLMOverview{ByProvider: make(map[string]ProviderTotals)}
	for _, p := range source.LLMProviders() {
		out.ByProvider[string(p)] = ProviderTotals{}
	}

	var scoreSum float64
	for _, row := range current {
		out.TotalMentions += row.Mentions
		out.TotalCitations += row.Citations
		out.TotalClickThroughs += row.ClickThroughs
		scoreSum += row.RankingScore

		totals := out.ByProvider[row.Provider]
		totals.Mentions += row.Mentions
		totals.Citations += row.Citations
		totals.ClickThroughs += row.ClickThroughs
		out.ByProvider[row.Provider] = totals
	}
	out.SampleCount = len(current)
	if out.SampleCount > 0 {
		out.AverageRankingScore = scoreSum / float64(out.SampleCount)
	}

	var prevMentions, prevCitations, prevClicks int64
	for _, row := range previous {
		prevMentions += row.Mentions
		prevCitations += row.Citations
		prevClicks += row.ClickThroughs
	}
	out.Trend = LLMTrend{
		Mentions:      percentChange(float64(out.TotalMentions), float64(prevMentions)),
		Citations:     percentChange(float64(out.TotalCitations), float64(prevCitations)),
		ClickThroughs: percentChange(float64(out.TotalClickThroughs), float64(prevClicks)),
	}
	return out
}

func buildKeywordOverview(keywords []db.Keyword) KeywordOverview {
	out := KeywordOverview{TotalTracked: len(keywords), TopKeywords: []db.Keyword{}}
	for _, k := range keywords {
		if k.CurrentRank != nil && k.PreviousRank != nil {
			switch {
			case *k.CurrentRank < *k.PreviousRank:
				out.RankingImprovements++
			case *k.CurrentRank > *k.PreviousRank:
				out.RankingDeclines++
			}
		}
		if k.CurrentRank != nil && *k.CurrentRank <= topKeywordMaxRank {
			out.TopKeywords = append(out.TopKeywords, k)
		}
	}
	sort.SliceStable(out.TopKeywords, func(i, j int) bool {
		return *out.TopKeywords[i].CurrentRank < *out.TopKeywords[j].CurrentRank
	})
	if len(out.TopKeywords) > topKeywordLimit {
		out.TopKeywords = out.TopKeywords[:topKeywordLimit]
	}
	return out
}

func buildRecommendationOverview(recs []db.Recommendation) RecommendationOverview {
	var out RecommendationOverview
	for _, r := range recs {
		switch r.Status {
		case RecommendationPending:
			out.Pending++
		case RecommendationInProgress:
			out.InProgress++
		case RecommendationCompleted:
			out.Completed++
		}
		if r.Priority == PriorityCritical {
			out.Critical++
		}
	}
	return out
}

// percentChange 返回 (current-previous)/previous*100，previous<=0 时为 0。
func percentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// invertedPercentChange 用于排名这类越小越好的指标：(previous-current)/previous*100。
func invertedPercentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (previous - current) / previous * 100
}
