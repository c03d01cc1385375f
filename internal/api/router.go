package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/sketchcast/internal/logger"
)

// NewRouter wires the frame server routes.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	{
		api.GET("/scene", h.GetScene)
		api.GET("/frame.png", h.GetFrame)
		api.GET("/timeline", h.GetTimeline)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("/:session_id", h.GetSession)
			sessions.GET("/:session_id/frame.png", h.GetSessionFrame)
			sessions.POST("/:session_id/:action", h.ControlSession)
			sessions.DELETE("/:session_id", h.DeleteSession)
		}
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithField("component", "api").Debugf("%s %s %d %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
