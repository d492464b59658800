package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/source"
	"gorm.io/gorm"
)

// CitationInput 是监控服务 webhook 上报的一条事件。
type CitationInput struct {
	Provider     string
	SiteURL      string
	Query        string
	EventType    string
	RankingScore *float64
	OccurredAt   time.Time
}

// CitationService 存储 LLM 引用事件，并作为监控适配器的数据来源。
type CitationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCitationService 构造 CitationService
func NewCitationService(gdb *gorm.DB) *CitationService {
	return &CitationService{db: gdb, now: time.Now}
}

// WithClock 在测试中固定当前时间。
func (s *CitationService) WithClock(now func() time.Time) *CitationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Record 校验并保存一条事件。
func (s *CitationService) Record(ctx context.Context, input CitationInput) (*db.CitationEvent, error) {
	provider, err := source.ParseType(input.Provider)
	if err != nil || !provider.IsLLM() || provider == source.TypeCustom {
		return nil, invalidInput("provider must be one of openai, perplexity, claude, gemini")
	}
	host, err := source.SiteHost(input.SiteURL)
	if err != nil {
		return nil, invalidInput("site_url: %v", err)
	}
	eventType := strings.TrimSpace(strings.ToLower(input.EventType))
	if !oneOf(eventType, source.EventMention, source.EventCitation, source.EventClickThrough) {
		return nil, invalidInput("event_type must be mention, citation or click_through")
	}
	if input.RankingScore != nil && (*input.RankingScore < 0 || *input.RankingScore > 100) {
		return nil, invalidInput("ranking_score must be between 0 and 100")
	}

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	occurred = occurred.UTC()

	event := db.CitationEvent{
		Provider:     string(provider),
		SiteHost:     host,
		MetricDate:   db.FormatDate(occurred),
		Query:        strings.TrimSpace(input.Query),
		EventType:    eventType,
		RankingScore: input.RankingScore,
		OccurredAt:   occurred,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("record citation event: %w", err)
	}
	return &event, nil
}

// CitationEvents 实现 source.CitationEventReader。
func (s *CitationService) CitationEvents(ctx context.Context, provider source.Type, siteHost string, w source.Window) ([]source.CitationEvent, error) {
	var rows []db.CitationEvent
	if err := s.db.WithContext(ctx).
		Where("provider = ? AND site_host = ? AND metric_date >= ? AND metric_date <= ?", string(provider), siteHost, w.StartDate(), w.EndDate()).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list citation events: %w", err)
	}

	events := make([]source.CitationEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, source.CitationEvent{
			Query:        row.Query,
			EventType:    row.EventType,
			Date:         row.MetricDate,
			RankingScore: row.RankingScore,
		})
	}
	return events, nil
}
