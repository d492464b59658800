package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/clientdash/internal/db"
	"gorm.io/gorm"
)

// WebsiteService 管理租户与其网站。
type WebsiteService struct {
	db *gorm.DB
}

// ClientInput 创建租户的字段
type ClientInput struct {
	CompanyName      string
	SubscriptionTier string
}

// WebsiteInput 创建网站的字段
type WebsiteInput struct {
	ClientID string
	URL      string
	Name     string
}

// NewWebsiteService 构造 WebsiteService
func NewWebsiteService(gdb *gorm.DB) *WebsiteService {
	return &WebsiteService{db: gdb}
}

// CreateClient 新建租户
func (s *WebsiteService) CreateClient(ctx context.Context, input ClientInput) (*db.Client, error) {
	name := strings.TrimSpace(input.CompanyName)
	if name == "" {
		return nil, invalidInput("company_name is required")
	}
	tier := defaultString(input.SubscriptionTier, "basic")
	if !oneOf(tier, "basic", "premium", "enterprise") {
		return nil, invalidInput("unknown subscription_tier %q", tier)
	}

	client := db.Client{CompanyName: name, SubscriptionTier: tier}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &client, nil
}

// CreateWebsite 为租户新增网站，URL 必须带 host。
func (s *WebsiteService) CreateWebsite(ctx context.Context, input WebsiteInput) (*db.Website, error) {
	clientID := strings.TrimSpace(input.ClientID)
	if clientID == "" {
		return nil, invalidInput("client_id is required")
	}
	rawURL := strings.TrimSpace(input.URL)
	parsed, err := url.Parse(rawURL)
	if rawURL == "" || err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, invalidInput("url must be an absolute http(s) URL")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Client{}).Where("id = ?", clientID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check client: %w", err)
	}
	if count == 0 {
		return nil, ErrClientNotFound
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = parsed.Host
	}
	website := db.Website{ClientID: clientID, URL: rawURL, Name: name}
	if err := s.db.WithContext(ctx).Create(&website).Error; err != nil {
		return nil, fmt.Errorf("create website: %w", err)
	}
	return &website, nil
}

// ListWebsites 列出网站，clientID 为空时返回全部。
func (s *WebsiteService) ListWebsites(ctx context.Context, clientID string) ([]db.Website, error) {
	query := s.db.WithContext(ctx).Model(&db.Website{})
	if clientID = strings.TrimSpace(clientID); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	websites := []db.Website{}
	if err := query.Order("created_at ASC").Find(&websites).Error; err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	return websites, nil
}

// GetWebsite 根据 ID 获取网站
func (s *WebsiteService) GetWebsite(ctx context.Context, id string) (*db.Website, error) {
	var website db.Website
	if err := s.db.WithContext(ctx).First(&website, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebsiteNotFound
		}
		return nil, fmt.Errorf("get website: %w", err)
	}
	return &website, nil
}
