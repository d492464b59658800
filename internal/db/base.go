package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout 是 metric_date 等日期列的存储格式，字典序即日期序。
const DateLayout = "2006-01-02"

// Base 提供字符串 UUID 主键与时间戳。
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate 在插入前补齐 UUID。
func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// FormatDate 将时间格式化为 UTC 日期字符串。
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate 解析 YYYY-MM-DD 日期，结果为 UTC 零点。
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
