package db

// SearchMetric 记录 Search Console 每日汇总数据。
// WebsiteID + MetricDate 唯一，作为 upsert 冲突目标。
type SearchMetric struct {
	Base
	WebsiteID       string  `gorm:"size:36;uniqueIndex:idx_search_metric_key" json:"website_id"`
	MetricDate      string  `gorm:"size:10;uniqueIndex:idx_search_metric_key" json:"metric_date"`
	Clicks          int64   `gorm:"default:0" json:"clicks"`
	Impressions     int64   `gorm:"default:0" json:"impressions"`
	CTR             float64 `gorm:"column:ctr;default:0" json:"ctr"`
	AveragePosition float64 `gorm:"default:0" json:"average_position"`
}

// TableName 指定自定义表名。
func (SearchMetric) TableName() string {
	return "google_search_metrics"
}

// SearchQuery 记录按查询词拆分的每日数据。
type SearchQuery struct {
	Base
	WebsiteID       string  `gorm:"size:36;uniqueIndex:idx_search_query_key" json:"website_id"`
	Query           string  `gorm:"size:500;uniqueIndex:idx_search_query_key" json:"query"`
	MetricDate      string  `gorm:"size:10;uniqueIndex:idx_search_query_key" json:"metric_date"`
	Clicks          int64   `gorm:"default:0" json:"clicks"`
	Impressions     int64   `gorm:"default:0" json:"impressions"`
	CTR             float64 `gorm:"column:ctr;default:0" json:"ctr"`
	AveragePosition float64 `gorm:"default:0" json:"average_position"`
}

// TableName 指定自定义表名。
func (SearchQuery) TableName() string {
	return "google_search_queries"
}

// SearchPage 记录按落地页拆分的每日数据。
type SearchPage struct {
	Base
	WebsiteID       string  `gorm:"size:36;uniqueIndex:idx_search_page_key" json:"website_id"`
	PageURL         string  `gorm:"size:1000;uniqueIndex:idx_search_page_key" json:"page_url"`
	MetricDate      string  `gorm:"size:10;uniqueIndex:idx_search_page_key" json:"metric_date"`
	Clicks          int64   `gorm:"default:0" json:"clicks"`
	Impressions     int64   `gorm:"default:0" json:"impressions"`
	CTR             float64 `gorm:"column:ctr;default:0" json:"ctr"`
	AveragePosition float64 `gorm:"default:0" json:"average_position"`
}

// TableName 指定自定义表名。
func (SearchPage) TableName() string {
	return "google_search_pages"
}
