package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/source"
	"gorm.io/gorm"
)

// DataSourceInput 新建数据源配置的字段
type DataSourceInput struct {
	WebsiteID     string
	SourceType    string
	SourceName    string
	SyncFrequency string
	Credentials   map[string]string
	IsActive      *bool
}

// DataSourceUpdate 只更新非空字段。Credentials 非空时整体替换并重新校验。
type DataSourceUpdate struct {
	SourceName    *string
	SyncFrequency *string
	IsActive      *bool
	Credentials   map[string]string
}

// DataSourceView 是对外返回的数据源，凭据只给出字段名。
type DataSourceView struct {
	db.DataSource
	DisplayName      string   `json:"display_name"`
	CredentialFields []string `json:"credential_fields"`
}

// DataSourceService 对应设置页的数据源增删改查。
type DataSourceService struct {
	db  *gorm.DB
	box CredentialBox
}

// NewDataSourceService 构造 DataSourceService
func NewDataSourceService(gdb *gorm.DB, box CredentialBox) *DataSourceService {
	return &DataSourceService{db: gdb, box: box}
}

// List 返回网站的数据源配置
func (s *DataSourceService) List(ctx context.Context, websiteID string, activeOnly bool) ([]DataSourceView, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	query := s.db.WithContext(ctx).Where("website_id = ?", websiteID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var sources []db.DataSource
	if err := query.Order("created_at ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	views := make([]DataSourceView, 0, len(sources))
	for _, ds := range sources {
		views = append(views, s.view(ds))
	}
	return views, nil
}

// Get 根据 ID 获取数据源
func (s *DataSourceService) Get(ctx context.Context, id string) (*db.DataSource, error) {
	var ds db.DataSource
	if err := s.db.WithContext(ctx).First(&ds, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDataSourceNotFound
		}
		return nil, fmt.Errorf("get data source: %w", err)
	}
	return &ds, nil
}

// Create 校验凭据后加密保存。
func (s *DataSourceService) Create(ctx context.Context, input DataSourceInput) (*DataSourceView, error) {
	websiteID := strings.TrimSpace(input.WebsiteID)
	if websiteID == "" {
		return nil, invalidInput("website_id is required")
	}
	t, err := source.ParseType(input.SourceType)
	if err != nil {
		return nil, err
	}
	frequency, err := parseFrequency(input.SyncFrequency)
	if err != nil {
		return nil, err
	}
	if err := ensureWebsite(ctx, s.db, websiteID); err != nil {
		return nil, err
	}

	creds, err := source.DecodeCredentials(t, input.Credentials)
	if err != nil {
		return nil, err
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	if active {
		if err := s.ensureSingleActive(ctx, websiteID, string(t), ""); err != nil {
			return nil, err
		}
	}
	sealed, err := sealCredentials(s.box, creds)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.SourceName)
	if name == "" {
		name = t.DisplayName()
	}

	ds := db.DataSource{
		WebsiteID:     websiteID,
		SourceType:    string(t),
		SourceName:    name,
		Credentials:   sealed,
		IsActive:      active,
		SyncFrequency: frequency,
	}
	if err := s.db.WithContext(ctx).Create(&ds).Error; err != nil {
		return nil, fmt.Errorf("create data source: %w", err)
	}
	view := s.view(ds)
	return &view, nil
}

// Update 修改数据源配置
func (s *DataSourceService) Update(ctx context.Context, id string, update DataSourceUpdate) (*DataSourceView, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.SourceName != nil {
		if name := strings.TrimSpace(*update.SourceName); name != "" {
			ds.SourceName = name
		}
	}
	if update.SyncFrequency != nil {
		frequency, err := parseFrequency(*update.SyncFrequency)
		if err != nil {
			return nil, err
		}
		ds.SyncFrequency = frequency
	}
	if update.IsActive != nil {
		if *update.IsActive && !ds.IsActive {
			if err := s.ensureSingleActive(ctx, ds.WebsiteID, ds.SourceType, ds.ID); err != nil {
				return nil, err
			}
		}
		ds.IsActive = *update.IsActive
	}
	if len(update.Credentials) > 0 {
		t, err := source.ParseType(ds.SourceType)
		if err != nil {
			return nil, err
		}
		creds, err := source.DecodeCredentials(t, update.Credentials)
		if err != nil {
			return nil, err
		}
		if ds.Credentials, err = sealCredentials(s.box, creds); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Model(ds).Select("source_name", "sync_frequency", "is_active", "credentials").Updates(ds).Error
	if err != nil {
		return nil, fmt.Errorf("update data source: %w", err)
	}
	view := s.view(*ds)
	return &view, nil
}

// SetActive 启用或停用数据源
func (s *DataSourceService) SetActive(ctx context.Context, id string, active bool) (*DataSourceView, error) {
	return s.Update(ctx, id, DataSourceUpdate{IsActive: &active})
}

// Delete 删除数据源配置，已同步的指标保留。
func (s *DataSourceService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&db.DataSource{}, "id = ?", strings.TrimSpace(id))
	if result.Error != nil {
		return fmt.Errorf("delete data source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDataSourceNotFound
	}
	return nil
}

// ensureSingleActive 保证同一网站同一类型最多一个启用中的数据源。
func (s *DataSourceService) ensureSingleActive(ctx context.Context, websiteID, sourceType, excludeID string) error {
	query := s.db.WithContext(ctx).Model(&db.DataSource{}).
		Where("website_id = ? AND source_type = ? AND is_active = ?", websiteID, sourceType, true)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check active data sources: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateDataSource, sourceType)
	}
	return nil
}

func (s *DataSourceService) view(ds db.DataSource) DataSourceView {
	return DataSourceView{
		DataSource:       ds,
		DisplayName:      source.Type(ds.SourceType).DisplayName(),
		CredentialFields: credentialFieldNames(s.box, ds),
	}
}

func parseFrequency(raw string) (string, error) {
	frequency := defaultString(raw, db.SyncFrequencyDaily)
	if !oneOf(frequency, db.SyncFrequencyHourly, db.SyncFrequencyDaily, db.SyncFrequencyWeekly) {
		return "", invalidInput("unknown sync_frequency %q", raw)
	}
	return frequency, nil
}
