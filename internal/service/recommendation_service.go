package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 建议状态
const (
	RecommendationPending    = "pending"
	RecommendationInProgress = "in_progress"
	RecommendationCompleted  = "completed"
	RecommendationDismissed  = "dismissed"
)

// 建议优先级
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// 建议类型
const (
	RecommendationContent         = "content"
	RecommendationTechnical       = "technical"
	RecommendationOnPage          = "on_page"
	RecommendationOffPage         = "off_page"
	RecommendationLLMOptimization = "llm_optimization"
)

const (
	citationRateThreshold  = 10
	rankingScoreThreshold  = 70
	highPerformingQueryTop = 5
)

// validTransitions 列出允许的状态流转；completed 为终态。
var validTransitions = map[string][]string{
	RecommendationPending:    {RecommendationInProgress, RecommendationCompleted, RecommendationDismissed},
	RecommendationInProgress: {RecommendationCompleted, RecommendationDismissed, RecommendationPending},
	RecommendationDismissed:  {RecommendationPending},
}

// IsTransitionAllowed 判断 from -> to 是否合法。
func IsTransitionAllowed(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RecommendationDraft 是规则生成的建议，尚未落库。
type RecommendationDraft struct {
	WebsiteID          string
	RecommendationType string
	Priority           string
	Title              string
	Description        string
	ActionItems        []string
	ExpectedImpact     string
}

// GenerateLLMRecommendations 按顺序评估规则；没有指标时跳过引用率和排名两条。
func GenerateLLMRecommendations(websiteID string, metrics []db.LLMMetric, queries []db.LLMQuery) []RecommendationDraft {
	drafts := []RecommendationDraft{}

	if len(metrics) > 0 {
		var citations int64
		var scoreSum float64
		for _, m := range metrics {
			citations += m.Citations
			scoreSum += m.RankingScore
		}
		score := scoreSum / float64(len(metrics))

		if citations < citationRateThreshold {
			drafts = append(drafts, RecommendationDraft{
				WebsiteID:          websiteID,
				RecommendationType: RecommendationLLMOptimization,
				Priority:           PriorityHigh,
				Title:              "Increase AI Citation Rate",
				Description:        "Your website has low citation rates in AI responses. Focus on creating authoritative, well-structured content.",
				ActionItems: []string{
					"Add structured data (JSON-LD) to key pages",
					"Create comprehensive, authoritative content",
					"Improve content clarity and readability",
					"Add FAQ sections with clear answers",
				},
				ExpectedImpact: PriorityHigh,
			})
		}

		if score < rankingScoreThreshold {
			drafts = append(drafts, RecommendationDraft{
				WebsiteID:          websiteID,
				RecommendationType: RecommendationLLMOptimization,
				Priority:           PriorityMedium,
				Title:              "Improve AI Ranking Score",
				Description:        "Your AI ranking score is below optimal. Focus on content quality and relevance.",
				ActionItems: []string{
					"Optimize content for semantic search",
					"Improve content depth and comprehensiveness",
					"Add expert citations and references",
					"Ensure content answers common questions clearly",
				},
				ExpectedImpact: PriorityMedium,
			})
		}
	}

	if len(queries) > 0 {
		top := topQueriesByMentions(queries, highPerformingQueryTop)
		drafts = append(drafts, RecommendationDraft{
			WebsiteID:          websiteID,
			RecommendationType: RecommendationLLMOptimization,
			Priority:           PriorityMedium,
			Title:              "Optimize for High-Performing Queries",
			Description: fmt.Sprintf("Your website is mentioned for these queries: %s. Optimize content to increase citations.",
				strings.Join(top, ", ")),
			ActionItems: []string{
				"Create dedicated content for: " + top[0],
				"Add related questions and answers",
				"Improve content structure and headings",
				"Add internal links to related content",
			},
			ExpectedImpact: PriorityMedium,
		})
	}

	return drafts
}

// topQueriesByMentions 同一查询跨天/提供方合并后按提及数降序取前 n 个。
func topQueriesByMentions(queries []db.LLMQuery, n int) []string {
	totals := make(map[string]int64)
	var order []string
	for _, q := range queries {
		if _, ok := totals[q.Query]; !ok {
			order = append(order, q.Query)
		}
		totals[q.Query] += q.Mentions
	}
	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// RecommendationInput 手动创建建议时的字段。
type RecommendationInput struct {
	WebsiteID          string
	RecommendationType string
	Priority           string
	Title              string
	Description        string
	ActionItems        []string
	ExpectedImpact     string
}

// RecommendationService 负责建议的存取与状态流转。
type RecommendationService struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewRecommendationService 构造 RecommendationService
func NewRecommendationService(gdb *gorm.DB) *RecommendationService {
	return &RecommendationService{db: gdb, sanitizer: bluemonday.StrictPolicy(), now: time.Now}
}

// WithClock 在测试中固定当前时间。
func (s *RecommendationService) WithClock(now func() time.Time) *RecommendationService {
	if now != nil {
		s.now = now
	}
	return s
}

// SaveDrafts 按 (website_id, title) 去重写入：已存在的只刷新文案和优先级，保留状态。
func (s *RecommendationService) SaveDrafts(ctx context.Context, drafts []RecommendationDraft) ([]db.Recommendation, error) {
	saved := make([]db.Recommendation, 0, len(drafts))
	for _, d := range drafts {
		rec := db.Recommendation{
			WebsiteID:          d.WebsiteID,
			RecommendationType: d.RecommendationType,
			Priority:           d.Priority,
			Title:              d.Title,
			Description:        d.Description,
			ActionItems:        d.ActionItems,
			ExpectedImpact:     d.ExpectedImpact,
			Status:             RecommendationPending,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "website_id"}, {Name: "title"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"recommendation_type", "priority", "description", "action_items", "expected_impact", "updated_at",
			}),
		}).Create(&rec).Error
		if err != nil {
			return nil, &PersistenceError{Op: "upsert recommendation", Err: err}
		}

		var stored db.Recommendation
		if err := s.db.WithContext(ctx).
			Where("website_id = ? AND title = ?", d.WebsiteID, d.Title).
			First(&stored).Error; err != nil {
			return nil, fmt.Errorf("reload recommendation: %w", err)
		}
		saved = append(saved, stored)
	}
	return saved, nil
}

// GenerateForWebsite 读取当前窗口的 LLM 数据，生成并保存建议。
func (s *RecommendationService) GenerateForWebsite(ctx context.Context, websiteID string) ([]db.Recommendation, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	if err := ensureWebsite(ctx, s.db, websiteID); err != nil {
		return nil, err
	}

	today := db.FormatDate(s.now())
	todayDate, _ := db.ParseDate(today)
	start := db.FormatDate(todayDate.AddDate(0, 0, -overviewWindowDays))

	var metrics []db.LLMMetric
	if err := s.db.WithContext(ctx).
		Where("website_id = ? AND metric_date >= ? AND metric_date < ?", websiteID, start, today).
		Find(&metrics).Error; err != nil {
		return nil, fmt.Errorf("load llm metrics: %w", err)
	}
	var queries []db.LLMQuery
	if err := s.db.WithContext(ctx).
		Where("website_id = ? AND metric_date >= ? AND metric_date < ?", websiteID, start, today).
		Find(&queries).Error; err != nil {
		return nil, fmt.Errorf("load llm queries: %w", err)
	}

	return s.SaveDrafts(ctx, GenerateLLMRecommendations(websiteID, metrics, queries))
}

// List 返回网站的建议，status 为空时不过滤。
func (s *RecommendationService) List(ctx context.Context, websiteID, status string) ([]db.Recommendation, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	query := s.db.WithContext(ctx).Where("website_id = ?", websiteID)
	if status = strings.TrimSpace(status); status != "" {
		if !isRecommendationStatus(status) {
			return nil, invalidInput("unknown status %q", status)
		}
		query = query.Where("status = ?", status)
	}

	recs := []db.Recommendation{}
	if err := query.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

// Create 手动新增一条建议，标题与描述会去除 HTML。
func (s *RecommendationService) Create(ctx context.Context, input RecommendationInput) (*db.Recommendation, error) {
	websiteID := strings.TrimSpace(input.WebsiteID)
	title := strings.TrimSpace(s.sanitizer.Sanitize(input.Title))
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	if title == "" {
		return nil, invalidInput("title is required")
	}
	if err := ensureWebsite(ctx, s.db, websiteID); err != nil {
		return nil, err
	}
	var existing int64
	if err := s.db.WithContext(ctx).Model(&db.Recommendation{}).
		Where("website_id = ? AND title = ?", websiteID, title).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check recommendation title: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateRecommendation, title)
	}

	recType := defaultString(input.RecommendationType, RecommendationContent)
	if !oneOf(recType, RecommendationContent, RecommendationTechnical, RecommendationOnPage, RecommendationOffPage, RecommendationLLMOptimization) {
		return nil, invalidInput("unknown recommendation_type %q", recType)
	}
	priority := defaultString(input.Priority, PriorityMedium)
	if !oneOf(priority, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical) {
		return nil, invalidInput("unknown priority %q", priority)
	}
	impact := defaultString(input.ExpectedImpact, PriorityMedium)
	if !oneOf(impact, PriorityLow, PriorityMedium, PriorityHigh) {
		return nil, invalidInput("unknown expected_impact %q", impact)
	}

	items := make([]string, 0, len(input.ActionItems))
	for _, item := range input.ActionItems {
		if item = strings.TrimSpace(s.sanitizer.Sanitize(item)); item != "" {
			items = append(items, item)
		}
	}

	rec := db.Recommendation{
		WebsiteID:          websiteID,
		RecommendationType: recType,
		Priority:           priority,
		Title:              title,
		Description:        strings.TrimSpace(s.sanitizer.Sanitize(input.Description)),
		ActionItems:        items,
		ExpectedImpact:     impact,
		Status:             RecommendationPending,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create recommendation: %w", err)
	}
	return &rec, nil
}

// UpdateStatus 按状态机流转建议状态。
func (s *RecommendationService) UpdateStatus(ctx context.Context, id, status string) (*db.Recommendation, error) {
	status = strings.TrimSpace(status)
	if !isRecommendationStatus(status) {
		return nil, invalidInput("unknown status %q", status)
	}

	var rec db.Recommendation
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecommendationNotFound
		}
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	if rec.Status == status {
		return &rec, nil
	}
	if !IsTransitionAllowed(rec.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, status)
	}

	rec.Status = status
	if err := s.db.WithContext(ctx).Model(&rec).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update recommendation status: %w", err)
	}
	return &rec, nil
}

func isRecommendationStatus(status string) bool {
	return oneOf(status, RecommendationPending, RecommendationInProgress, RecommendationCompleted, RecommendationDismissed)
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func defaultString(value, fallback string) string {
	if value = strings.TrimSpace(strings.ToLower(value)); value == "" {
		return fallback
	}
	return value
}

func ensureWebsite(ctx context.Context, gdb *gorm.DB, websiteID string) error {
	var count int64
	if err := gdb.WithContext(ctx).Model(&db.Website{}).Where("id = ?", websiteID).Count(&count).Error; err != nil {
		return fmt.Errorf("check website: %w", err)
	}
	if count == 0 {
		return ErrWebsiteNotFound
	}
	return nil
}
