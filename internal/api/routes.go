package api

import (
	"net/http"

	"github.com/RichardoC/padchat/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins []string
	Metrics        bool
}

func NewRouter(h *Handler, authenticator *auth.Authenticator, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(corsConfig.AllowOrigins) == 0 || (len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	public := r.Group("/api")
	public.GET("/hello", h.Hello)

	protected := r.Group("/api")
	protected.Use(AuthMiddleware(authenticator, logger))
	{
		protected.GET("/conversations", h.GetConversations)
		protected.POST("/conversations", h.CreateConversation)
		protected.PATCH("/conversations/:id", h.UpdateConversation)
		protected.DELETE("/conversations/:id", h.DeleteConversation)
		protected.GET("/conversations/:id/messages", h.GetMessages)
		protected.POST("/conversations/:id/messages", h.SendMessage)
	}

	return r
}
