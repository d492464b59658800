package router

import (
	"log/slog"
	"net/http"

	"github.com/clientdash/internal/handler"
	"github.com/clientdash/internal/logging"
	"github.com/clientdash/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "clientdash_session"

// Options 汇总 SetupRouter 的可选依赖。
type Options struct {
	SessionSecret string
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(logging.Middleware(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// 配置会话中间件，记住当前选中的网站
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/clients", api.CreateClient)
		apiGroup.GET("/websites", api.ListWebsites)
		apiGroup.POST("/websites", api.CreateWebsite)

		apiGroup.GET("/session/website", api.GetSelectedWebsite)
		apiGroup.PUT("/session/website", api.SelectWebsite)

		seo := apiGroup.Group("/seo")
		{
			seo.GET("/overview", api.GetSEOOverview)
			seo.POST("/sync", api.TriggerSync)
			seo.GET("/sync", api.GetSyncStatus)

			seo.GET("/sources", api.ListDataSources)
			seo.POST("/sources", api.CreateDataSource)
			seo.PATCH("/sources/:id", api.UpdateDataSource)
			seo.DELETE("/sources/:id", api.DeleteDataSource)

			seo.POST("/llm/events", api.RecordCitationEvent)

			seo.GET("/keywords", api.ListKeywords)
			seo.POST("/keywords", api.TrackKeyword)

			seo.GET("/recommendations", api.ListRecommendations)
			seo.POST("/recommendations", api.CreateRecommendation)
			seo.POST("/recommendations/generate", api.GenerateRecommendations)
			seo.PATCH("/recommendations/:id/status", api.UpdateRecommendationStatus)
		}
	}

	return r
}
