package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/config"
	"github.com/threadcast/threadcast/internal/http/handler"
	"github.com/threadcast/threadcast/internal/http/middleware"
	"github.com/threadcast/threadcast/internal/session"
)

// NewRouter assembles the HTTP surface.
func NewRouter(
	cfg config.Config,
	logger *zap.Logger,
	sessions *session.Manager,
	limiter *middleware.RateLimiter,
	threadsHandler *handler.ThreadsHandler,
	postsHandler *handler.PostsHandler,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(limiter.Handler())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.Auth{Sessions: sessions}

	threadsGroup := router.Group("/threads")
	{
		threadsGroup.GET("/auth", auth.Require, threadsHandler.AuthStart)
		// The callback authenticates via the server-side state record.
		threadsGroup.GET("/callback", threadsHandler.Callback)
		threadsGroup.POST("/disconnect", auth.Require, threadsHandler.Disconnect)
	}

	postsGroup := router.Group("/posts", auth.Require)
	{
		postsGroup.POST("", postsHandler.Create)
		postsGroup.GET("/:id", postsHandler.Get)
		postsGroup.POST("/publish", postsHandler.PublishPost)
		postsGroup.POST("/generate", postsHandler.Generate)
		postsGroup.POST("/sync-engagement", postsHandler.SyncEngagement)
	}

	router.POST("/cron/sync-analytics", postsHandler.CronSync)

	return router
}
