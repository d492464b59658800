package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const recentSyncRuns = 10

// GetSEOOverview 返回网站的 SEO 概览。
func (a *API) GetSEOOverview(c *gin.Context) {
	websiteID := resolveWebsiteID(c, c.Query("website_id"))
	if websiteID == "" {
		respondError(c, http.StatusBadRequest, "website_id is required")
		return
	}

	overview, err := a.overview.ComputeOverview(c.Request.Context(), websiteID)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

type syncRequest struct {
	WebsiteID  string `json:"website_id"`
	SourceType string `json:"source_type"`
}

// TriggerSync 同步一路数据源并返回本次窗口内的指标。
func (a *API) TriggerSync(c *gin.Context) {
	var req syncRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	websiteID := resolveWebsiteID(c, req.WebsiteID)
	if websiteID == "" {
		respondError(c, http.StatusBadRequest, "website_id is required")
		return
	}

	result, err := a.syncs.Sync(c.Request.Context(), websiteID, req.SourceType)
	if err != nil {
		a.log().Warn("manual sync failed", "website_id", websiteID, "source_type", req.SourceType, "error", err)
		handleSEOError(c, err)
		return
	}

	var metrics any = result.SearchMetrics
	if result.SourceType.IsLLM() {
		metrics = result.LLMMetrics
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     fmt.Sprintf("%s data synced successfully", result.SourceType.DisplayName()),
		"metrics":     metrics,
		"window":      result.Window,
		"run_id":      result.RunID,
		"query_rows":  result.QueryRows,
		"page_rows":   result.PageRows,
		"failed_rows": result.FailedRows,
	})
}

// GetSyncStatus 列出启用中的数据源和最近的同步记录。
func (a *API) GetSyncStatus(c *gin.Context) {
	websiteID := resolveWebsiteID(c, c.Query("website_id"))
	if websiteID == "" {
		respondError(c, http.StatusBadRequest, "website_id is required")
		return
	}

	ctx := c.Request.Context()
	sources, err := a.syncs.ActiveSources(ctx, websiteID)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	runs, err := a.syncs.RecentRuns(ctx, websiteID, recentSyncRuns)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "runs": runs})
}
