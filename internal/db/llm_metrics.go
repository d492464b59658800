package db

import "time"

// LLMMetric 记录某个 LLM 提供方每日的提及/引用数据。
type LLMMetric struct {
	Base
	WebsiteID     string  `gorm:"size:36;uniqueIndex:idx_llm_metric_key" json:"website_id"`
	Provider      string  `gorm:"size:40;uniqueIndex:idx_llm_metric_key" json:"provider"`
	MetricDate    string  `gorm:"size:10;uniqueIndex:idx_llm_metric_key" json:"metric_date"`
	Mentions      int64   `gorm:"default:0" json:"mentions"`
	Citations     int64   `gorm:"default:0" json:"citations"`
	ClickThroughs int64   `gorm:"default:0" json:"click_throughs"`
	RankingScore  float64 `gorm:"default:0" json:"ranking_score"`
}

// TableName 指定自定义表名。
func (LLMMetric) TableName() string {
	return "llm_search_metrics"
}

// LLMQuery 记录带来提及的查询语句。
type LLMQuery struct {
	Base
	WebsiteID  string `gorm:"size:36;uniqueIndex:idx_llm_query_key" json:"website_id"`
	Provider   string `gorm:"size:40;uniqueIndex:idx_llm_query_key" json:"provider"`
	Query      string `gorm:"size:500;uniqueIndex:idx_llm_query_key" json:"query"`
	MetricDate string `gorm:"size:10;uniqueIndex:idx_llm_query_key" json:"metric_date"`
	Mentions   int64  `gorm:"default:0" json:"mentions"`
	Citations  int64  `gorm:"default:0" json:"citations"`
}

// TableName 指定自定义表名。
func (LLMQuery) TableName() string {
	return "llm_search_queries"
}

const (
	// CitationEventMention 网站被提及但未被标注为来源。
	CitationEventMention = "mention"
	// CitationEventCitation 网站被标注为答案来源。
	CitationEventCitation = "citation"
	// CitationEventClickThrough 用户点击了引用链接。
	CitationEventClickThrough = "click_through"
)

// CitationEvent 由监控服务通过 webhook 上报。
// 以站点 host 而非 website_id 关联，适配器只认识站点地址。
type CitationEvent struct {
	Base
	Provider     string    `gorm:"size:40;index:idx_citation_lookup" json:"provider"`
	SiteHost     string    `gorm:"size:255;index:idx_citation_lookup" json:"site_host"`
	MetricDate   string    `gorm:"size:10;index:idx_citation_lookup" json:"metric_date"`
	Query        string    `gorm:"size:500" json:"query"`
	EventType    string    `gorm:"size:20" json:"event_type"`
	RankingScore *float64  `json:"ranking_score,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// TableName 指定自定义表名。
func (CitationEvent) TableName() string {
	return "llm_citation_events"
}
