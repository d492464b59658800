package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clientdash/internal/db"
	"gorm.io/gorm"
)

const (
	defaultKeywordSource = "manual"
	defaultKeywordLimit  = 100
)

// KeywordInput 是一次排名上报。Rank 为空表示本次未上榜。
type KeywordInput struct {
	WebsiteID    string
	Keyword      string
	Source       string
	Rank         *int
	SearchVolume int
	Difficulty   int
	CPC          *float64
	Competition  string
	MetricDate   string
}

// KeywordService 负责关键词排名追踪。
type KeywordService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewKeywordService 构造 KeywordService
func NewKeywordService(gdb *gorm.DB) *KeywordService {
	return &KeywordService{db: gdb, now: time.Now}
}

// WithClock 在测试中固定当前时间。
func (s *KeywordService) WithClock(now func() time.Time) *KeywordService {
	if now != nil {
		s.now = now
	}
	return s
}

// Track 按 (website, keyword, source) upsert，旧的 current_rank 挪到 previous_rank。
func (s *KeywordService) Track(ctx context.Context, input KeywordInput) (*db.Keyword, error) {
	websiteID := strings.TrimSpace(input.WebsiteID)
	keyword := strings.TrimSpace(input.Keyword)
	if websiteID == "" || keyword == "" {
		return nil, invalidInput("website_id and keyword are required")
	}
	if input.Rank != nil && *input.Rank < 1 {
		return nil, invalidInput("rank must be positive")
	}
	if input.Difficulty < 0 || input.Difficulty > 100 {
		return nil, invalidInput("difficulty must be between 0 and 100")
	}
	competition := defaultString(input.Competition, "medium")
	if !oneOf(competition, "low", "medium", "high") {
		return nil, invalidInput("unknown competition %q", competition)
	}
	metricDate := strings.TrimSpace(input.MetricDate)
	if metricDate == "" {
		metricDate = db.FormatDate(s.now())
	} else if _, err := db.ParseDate(metricDate); err != nil {
		return nil, invalidInput("metric_date must be YYYY-MM-DD")
	}
	src := strings.TrimSpace(input.Source)
	if src == "" {
		src = defaultKeywordSource
	}
	if err := ensureWebsite(ctx, s.db, websiteID); err != nil {
		return nil, err
	}

	var saved db.Keyword
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.Keyword
		err := tx.Where("website_id = ? AND keyword = ? AND source = ?", websiteID, keyword, src).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = db.Keyword{WebsiteID: websiteID, Keyword: keyword, Source: src}
		case err != nil:
			return err
		case metricDate < existing.MetricDate:
			return invalidInput("metric_date %s is older than the stored report (%s)", metricDate, existing.MetricDate)
		case metricDate > existing.MetricDate:
			existing.PreviousRank = existing.CurrentRank
		}

		existing.CurrentRank = input.Rank
		existing.SearchVolume = input.SearchVolume
		existing.Difficulty = input.Difficulty
		existing.CPC = input.CPC
		existing.Competition = competition
		existing.MetricDate = metricDate

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		saved = existing
		return nil
	})
	if errors.Is(err, ErrInvalidInput) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("track keyword: %w", err)
	}
	return &saved, nil
}

// List 返回最近更新的关键词
func (s *KeywordService) List(ctx context.Context, websiteID string, limit int) ([]db.Keyword, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	if limit <= 0 || limit > defaultKeywordLimit {
		limit = defaultKeywordLimit
	}
	keywords := []db.Keyword{}
	if err := s.db.WithContext(ctx).
		Where("website_id = ?", websiteID).
		Order("metric_date DESC").
		Limit(limit).
		Find(&keywords).Error; err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	return keywords, nil
}
