package service

import (
	"errors"
	"fmt"

	"github.com/clientdash/internal/source"
)

var (
	// ErrInvalidInput 请求参数缺失或格式不对
	ErrInvalidInput = errors.New("invalid input")
	// ErrClientNotFound 指定租户不存在
	ErrClientNotFound = errors.New("client not found")
	// ErrWebsiteNotFound 指定网站不存在
	ErrWebsiteNotFound = errors.New("website not found")
	// ErrDataSourceNotFound 没有匹配的（启用中的）数据源配置
	ErrDataSourceNotFound = errors.New("data source not found")
	// ErrRecommendationNotFound 指定建议不存在
	ErrRecommendationNotFound = errors.New("recommendation not found")
	// ErrInvalidTransition 建议状态不允许这样流转
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicateRecommendation 同一网站下已有同名建议
	ErrDuplicateRecommendation = errors.New("recommendation already exists")
	// ErrDuplicateDataSource 同一网站同一类型只能有一个启用中的数据源
	ErrDuplicateDataSource = errors.New("an active data source of this type already exists")
)

// PersistenceError 表示写库失败，Source 标明是哪一路数据源的同步。
type PersistenceError struct {
	Source source.Type
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
