package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clientdash/internal/service"
	"github.com/gin-gonic/gin"
)

type dataSourceRequest struct {
	WebsiteID     string            `json:"website_id"`
	SourceType    string            `json:"source_type"`
	SourceName    string            `json:"source_name"`
	SyncFrequency string            `json:"sync_frequency"`
	Credentials   map[string]string `json:"credentials"`
	IsActive      *bool             `json:"is_active"`
}

type dataSourcePatch struct {
	SourceName    *string           `json:"source_name"`
	SyncFrequency *string           `json:"sync_frequency"`
	IsActive      *bool             `json:"is_active"`
	Credentials   map[string]string `json:"credentials"`
}

// ListDataSources 返回网站的数据源配置，?active=true 只看启用的。
func (a *API) ListDataSources(c *gin.Context) {
	websiteID := resolveWebsiteID(c, c.Query("website_id"))
	if websiteID == "" {
		respondError(c, http.StatusBadRequest, "website_id is required")
		return
	}
	activeOnly, _ := strconv.ParseBool(strings.TrimSpace(c.Query("active")))

	sources, err := a.sources.List(c.Request.Context(), websiteID, activeOnly)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// CreateDataSource 新增数据源配置
func (a *API) CreateDataSource(c *gin.Context) {
	var req dataSourceRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	view, err := a.sources.Create(c.Request.Context(), service.DataSourceInput{
		WebsiteID:     resolveWebsiteID(c, req.WebsiteID),
		SourceType:    req.SourceType,
		SourceName:    req.SourceName,
		SyncFrequency: req.SyncFrequency,
		Credentials:   req.Credentials,
		IsActive:      req.IsActive,
	})
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"source": view})
}

// UpdateDataSource 修改名称、频率、启用状态或凭据
func (a *API) UpdateDataSource(c *gin.Context) {
	var req dataSourcePatch
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	view, err := a.sources.Update(c.Request.Context(), c.Param("id"), service.DataSourceUpdate{
		SourceName:    req.SourceName,
		SyncFrequency: req.SyncFrequency,
		IsActive:      req.IsActive,
		Credentials:   req.Credentials,
	})
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": view})
}

// DeleteDataSource 删除数据源配置
func (a *API) DeleteDataSource(c *gin.Context) {
	if err := a.sources.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
