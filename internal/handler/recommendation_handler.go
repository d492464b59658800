package handler

import (
	"bytes"
	"net/http"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type recommendationPayload struct {
	db.Recommendation
	DescriptionHTML string `json:"description_html"`
}

type recommendationRequest struct {
	WebsiteID          string   `json:"website_id"`
	RecommendationType string   `json:"recommendation_type"`
	Priority           string   `json:"priority"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	ActionItems        []string `json:"action_items"`
	ExpectedImpact     string   `json:"expected_impact"`
}

type generateRequest struct {
	WebsiteID string `json:"website_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return sanitizer.Sanitize(content)
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes()))
}

func recommendationToPayload(rec db.Recommendation) recommendationPayload {
	if rec.ActionItems == nil {
		rec.ActionItems = []string{}
	}
	return recommendationPayload{Recommendation: rec, DescriptionHTML: renderMarkdown(rec.Description)}
}

func recommendationsToPayload(recs []db.Recommendation) []recommendationPayload {
	out := make([]recommendationPayload, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recommendationToPayload(rec))
	}
	return out
}

// ListRecommendations 返回网站的建议，可按 status 过滤
func (a *API) ListRecommendations(c *gin.Context) {
	websiteID := resolveWebsiteID(c, c.Query("website_id"))
	recs, err := a.recommendations.List(c.Request.Context(), websiteID, c.Query("status"))
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recommendationsToPayload(recs)})
}

// CreateRecommendation 手动新增建议
func (a *API) CreateRecommendation(c *gin.Context) {
	var req recommendationRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	rec, err := a.recommendations.Create(c.Request.Context(), service.RecommendationInput{
		WebsiteID:          resolveWebsiteID(c, req.WebsiteID),
		RecommendationType: req.RecommendationType,
		Priority:           req.Priority,
		Title:              req.Title,
		Description:        req.Description,
		ActionItems:        req.ActionItems,
		ExpectedImpact:     req.ExpectedImpact,
	})
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recommendation": recommendationToPayload(*rec)})
}

// GenerateRecommendations 基于当前 LLM 指标生成建议
func (a *API) GenerateRecommendations(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	recs, err := a.recommendations.GenerateForWebsite(c.Request.Context(), resolveWebsiteID(c, req.WebsiteID))
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recommendationsToPayload(recs)})
}

// UpdateRecommendationStatus 流转建议状态
func (a *API) UpdateRecommendationStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	rec, err := a.recommendations.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": recommendationToPayload(*rec)})
}
