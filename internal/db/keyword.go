package db

// Keyword 记录排名追踪的关键词，CurrentRank/PreviousRank 为空表示未上榜。
type Keyword struct {
	Base
	WebsiteID    string   `gorm:"size:36;uniqueIndex:idx_keyword_key" json:"website_id"`
	Keyword      string   `gorm:"size:300;uniqueIndex:idx_keyword_key" json:"keyword"`
	Source       string   `gorm:"size:60;uniqueIndex:idx_keyword_key" json:"source"`
	CurrentRank  *int     `json:"current_rank,omitempty"`
	PreviousRank *int     `json:"previous_rank,omitempty"`
	SearchVolume int      `gorm:"default:0" json:"search_volume"`
	Difficulty   int      `gorm:"default:0" json:"difficulty"`
	CPC          *float64 `gorm:"column:cpc" json:"cpc,omitempty"`
	Competition  string   `gorm:"size:10;default:medium" json:"competition"`
	MetricDate   string   `gorm:"size:10;index" json:"metric_date"`
}

// TableName 指定自定义表名。
func (Keyword) TableName() string {
	return "seo_keywords"
}
