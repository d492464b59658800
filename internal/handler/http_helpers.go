package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/clientdash/internal/service"
	"github.com/clientdash/internal/source"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const selectedWebsiteKey = "selected_website_id"

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseLimitQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// selectedWebsiteID 读取会话中记住的网站；没有会话中间件时返回空串。
func selectedWebsiteID(c *gin.Context) string {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	value, _ := sessions.Default(c).Get(selectedWebsiteKey).(string)
	return value
}

// resolveWebsiteID 优先使用显式传入的 website_id，其次是会话中选中的网站。
func resolveWebsiteID(c *gin.Context, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	return selectedWebsiteID(c)
}

// handleSEOError 把领域错误映射为 HTTP 状态码。
func handleSEOError(c *gin.Context, err error) {
	var cfgErr *source.ConfigError
	var adapterErr *source.AdapterError
	var persistErr *service.PersistenceError

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, source.ErrUnsupportedSource):
		respondError(c, http.StatusBadRequest, "Unsupported source type")
	case errors.Is(err, service.ErrWebsiteNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrRecommendationNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDataSourceNotFound):
		respondError(c, http.StatusNotFound, "Data source not found or inactive")
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateRecommendation),
		errors.Is(err, service.ErrDuplicateDataSource):
		respondError(c, http.StatusConflict, err.Error())
	case errors.As(err, &cfgErr), errors.Is(err, source.ErrConfiguration):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &adapterErr):
		c.Error(err)
		respondError(c, http.StatusBadGateway, err.Error())
	case errors.As(err, &persistErr):
		c.Error(err)
		respondError(c, http.StatusInternalServerError, err.Error())
	default:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
