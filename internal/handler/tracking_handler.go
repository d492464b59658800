package handler

import (
	"net/http"
	"time"

	"github.com/clientdash/internal/service"
	"github.com/gin-gonic/gin"
)

type citationEventRequest struct {
	Provider     string     `json:"provider"`
	SiteURL      string     `json:"site_url"`
	Query        string     `json:"query"`
	EventType    string     `json:"event_type"`
	RankingScore *float64   `json:"ranking_score"`
	OccurredAt   *time.Time `json:"occurred_at"`
}

type keywordRequest struct {
	WebsiteID    string   `json:"website_id"`
	Keyword      string   `json:"keyword"`
	Source       string   `json:"source"`
	Rank         *int     `json:"rank"`
	SearchVolume int      `json:"search_volume"`
	Difficulty   int      `json:"difficulty"`
	CPC          *float64 `json:"cpc"`
	Competition  string   `json:"competition"`
	MetricDate   string   `json:"metric_date"`
}

// RecordCitationEvent 接收监控服务上报的 LLM 引用事件
func (a *API) RecordCitationEvent(c *gin.Context) {
	var req citationEventRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	input := service.CitationInput{
		Provider:     req.Provider,
		SiteURL:      req.SiteURL,
		Query:        req.Query,
		EventType:    req.EventType,
		RankingScore: req.RankingScore,
	}
	if req.OccurredAt != nil {
		input.OccurredAt = *req.OccurredAt
	}

	event, err := a.citations.Record(c.Request.Context(), input)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// ListKeywords 返回最近更新的关键词
func (a *API) ListKeywords(c *gin.Context) {
	websiteID := resolveWebsiteID(c, c.Query("website_id"))
	keywords, err := a.keywords.List(c.Request.Context(), websiteID, parseLimitQuery(c, "limit", 100))
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}

// TrackKeyword 上报一次关键词排名
func (a *API) TrackKeyword(c *gin.Context) {
	var req keywordRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	keyword, err := a.keywords.Track(c.Request.Context(), service.KeywordInput{
		WebsiteID:    resolveWebsiteID(c, req.WebsiteID),
		Keyword:      req.Keyword,
		Source:       req.Source,
		Rank:         req.Rank,
		SearchVolume: req.SearchVolume,
		Difficulty:   req.Difficulty,
		CPC:          req.CPC,
		Competition:  req.Competition,
		MetricDate:   req.MetricDate,
	})
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keyword": keyword})
}
