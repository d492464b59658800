package db

// Client 表示一个租户（客户公司）。
type Client struct {
	Base
	CompanyName      string `gorm:"size:200;not null" json:"company_name"`
	SubscriptionTier string `gorm:"size:20;default:basic" json:"subscription_tier"`
}

// TableName 指定自定义表名。
func (Client) TableName() string {
	return "clients"
}

// Website 归属于某个 Client，所有 SEO 数据都挂在 Website 下。
type Website struct {
	Base
	ClientID string `gorm:"size:36;index" json:"client_id"`
	URL      string `gorm:"size:500;not null" json:"url"`
	Name     string `gorm:"size:200" json:"name"`
}

// TableName 指定自定义表名。
func (Website) TableName() string {
	return "websites"
}
