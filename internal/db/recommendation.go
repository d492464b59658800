package db

// Recommendation 描述一条 SEO 优化建议。
// WebsiteID + Title 唯一，自动生成的建议据此去重。
type Recommendation struct {
	Base
	WebsiteID          string   `gorm:"size:36;uniqueIndex:idx_recommendation_key" json:"website_id"`
	RecommendationType string   `gorm:"size:30" json:"recommendation_type"`
	Priority           string   `gorm:"size:10;index" json:"priority"`
	Title              string   `gorm:"size:300;uniqueIndex:idx_recommendation_key" json:"title"`
	Description        string   `gorm:"type:text" json:"description"`
	ActionItems        []string `gorm:"serializer:json;type:text" json:"action_items"`
	ExpectedImpact     string   `gorm:"size:10;default:medium" json:"expected_impact"`
	Status             string   `gorm:"size:20;default:pending;index" json:"status"`
}

// TableName 指定自定义表名。
func (Recommendation) TableName() string {
	return "seo_recommendations"
}
