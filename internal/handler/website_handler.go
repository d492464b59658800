package handler

import (
	"net/http"
	"strings"

	"github.com/clientdash/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type clientRequest struct {
	CompanyName      string `json:"company_name"`
	SubscriptionTier string `json:"subscription_tier"`
}

type websiteRequest struct {
	ClientID string `json:"client_id"`
	URL      string `json:"url"`
	Name     string `json:"name"`
}

type selectWebsiteRequest struct {
	WebsiteID string `json:"website_id"`
}

// CreateClient 新建租户
func (a *API) CreateClient(c *gin.Context) {
	var req clientRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	client, err := a.websites.CreateClient(c.Request.Context(), service.ClientInput{
		CompanyName:      req.CompanyName,
		SubscriptionTier: req.SubscriptionTier,
	})
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

// ListWebsites 列出网站，可按 client_id 过滤
func (a *API) ListWebsites(c *gin.Context) {
	websites, err := a.websites.ListWebsites(c.Request.Context(), c.Query("client_id"))
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"websites": websites})
}

// CreateWebsite 为租户新增网站
func (a *API) CreateWebsite(c *gin.Context) {
	var req websiteRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	website, err := a.websites.CreateWebsite(c.Request.Context(), service.WebsiteInput{
		ClientID: req.ClientID,
		URL:      req.URL,
		Name:     req.Name,
	})
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"website": website})
}

// GetSelectedWebsite 返回当前会话选中的网站
func (a *API) GetSelectedWebsite(c *gin.Context) {
	id := selectedWebsiteID(c)
	if id == "" {
		c.JSON(http.StatusOK, gin.H{"website": nil})
		return
	}
	website, err := a.websites.GetWebsite(c.Request.Context(), id)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"website": website})
}

// SelectWebsite 记住会话选中的网站，空 website_id 表示清除
func (a *API) SelectWebsite(c *gin.Context) {
	var req selectWebsiteRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	session := sessions.Default(c)

	id := strings.TrimSpace(req.WebsiteID)
	if id == "" {
		session.Delete(selectedWebsiteKey)
		if err := session.Save(); err != nil {
			a.log().Error("save session", "error", err)
			respondError(c, http.StatusInternalServerError, "failed to save session")
			return
		}
		c.JSON(http.StatusOK, gin.H{"website": nil})
		return
	}

	website, err := a.websites.GetWebsite(c.Request.Context(), id)
	if err != nil {
		handleSEOError(c, err)
		return
	}
	session.Set(selectedWebsiteKey, website.ID)
	if err := session.Save(); err != nil {
		a.log().Error("save session", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"website": website})
}
