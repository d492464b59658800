package db

import "time"

const (
	// SyncFrequencyHourly 每小时同步。
	SyncFrequencyHourly = "hourly"
	// SyncFrequencyDaily 每天同步。
	SyncFrequencyDaily = "daily"
	// SyncFrequencyWeekly 每周同步。
	SyncFrequencyWeekly = "weekly"
)

// DataSource 描述一个网站的一路 SEO 数据集成配置。
// Credentials 存储加密后的凭据 JSON，明文只在同步时短暂存在。
type DataSource struct {
	Base
	WebsiteID     string     `gorm:"size:36;index:idx_data_source_lookup" json:"website_id"`
	SourceType    string     `gorm:"size:40;index:idx_data_source_lookup" json:"source_type"`
	SourceName    string     `gorm:"size:200" json:"source_name"`
	Credentials   string     `gorm:"type:text" json:"-"`
	IsActive      bool       `gorm:"index:idx_data_source_lookup" json:"is_active"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	SyncFrequency string     `gorm:"size:10;default:daily" json:"sync_frequency"`
}

// TableName 指定自定义表名。
func (DataSource) TableName() string {
	return "seo_data_sources"
}

const (
	// SyncStatusRunning 同步进行中。
	SyncStatusRunning = "running"
	// SyncStatusSucceeded 同步成功。
	SyncStatusSucceeded = "succeeded"
	// SyncStatusFailed 同步失败，Error 记录原因。
	SyncStatusFailed = "failed"
)

// SyncRun 记录每一次同步尝试，便于排查部分完成的同步。
type SyncRun struct {
	Base
	DataSourceID string     `gorm:"size:36;index" json:"data_source_id"`
	WebsiteID    string     `gorm:"size:36;index" json:"website_id"`
	SourceType   string     `gorm:"size:40" json:"source_type"`
	Status       string     `gorm:"size:20" json:"status"`
	Error        string     `gorm:"type:text" json:"error,omitempty"`
	MetricRows   int        `json:"metric_rows"`
	QueryRows    int        `json:"query_rows"`
	PageRows     int        `json:"page_rows"`
	FailedRows   int        `json:"failed_rows"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// TableName 指定自定义表名。
func (SyncRun) TableName() string {
	return "seo_sync_runs"
}
