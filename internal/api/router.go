package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/config"
	"github.com/sports-newsroom-api/internal/metrics"
	"github.com/sports-newsroom-api/internal/service"
	"github.com/sports-newsroom-api/internal/validation"
)

const (
	sessionHeader = "X-Session-ID"
	sessionKey    = "session_id"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())
	if m != nil {
		router.Use(m.Middleware())
	}

	// Handlers
	articleHandler := NewArticleHandler(services, log)
	alarmHandler := NewAlarmHandler(services, log)
	ingestHandler := NewIngestHandler(services, cfg, log)
	draftHandler := NewDraftHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// API v1
	v1 := router.Group("/v1")
	v1.Use(sessionMiddleware())
	{
		articles := v1.Group("/articles")
		{
			articles.GET("", articleHandler.List)
			articles.GET("/:id", articleHandler.Get)
			articles.PATCH("/:id", articleHandler.Update)
			articles.DELETE("/:id", articleHandler.Delete)
			articles.POST("/:id/views", articleHandler.Visit)
			articles.POST("/:id/open", articleHandler.Open)
			articles.POST("/:id/reactions/:kind", articleHandler.React)
			articles.GET("/:id/download", articleHandler.Download)
			articles.GET("/:id/comments", articleHandler.ListComments)
			articles.POST("/:id/comments", articleHandler.AddComment)
			articles.DELETE("/:id/comments/:comment_id", articleHandler.DeleteComment)
		}

		v1.GET("/dashboard", articleHandler.Dashboard)

		alarms := v1.Group("/alarms")
		{
			alarms.GET("", alarmHandler.Visit)
			alarms.GET("/flags", alarmHandler.Flags)
			alarms.POST("", alarmHandler.Create)
			alarms.DELETE("/:id", alarmHandler.Delete)
		}

		sessions := v1.Group("/ingest/sessions")
		{
			sessions.POST("", ingestHandler.Open)
			sessions.DELETE("/:id", ingestHandler.Close)
			sessions.POST("/:id/files", ingestHandler.AddFiles)
			sessions.POST("/:id/preload", ingestHandler.Preload)
			sessions.POST("/:id/replace", ingestHandler.Replace)
			sessions.POST("/:id/expansion", ingestHandler.ToggleExpansion)
			sessions.GET("/:id/preview", ingestHandler.Preview)
			sessions.GET("/:id/rows", ingestHandler.VisibleRows)
			sessions.POST("/:id/reset", ingestHandler.Reset)
		}

		v1.GET("/blobs/:ref", ingestHandler.Blob)

		drafts := v1.Group("/drafts")
		{
			drafts.GET("", draftHandler.Get)
			drafts.PATCH("", draftHandler.Update)
			drafts.POST("/submit", draftHandler.Submit)
			drafts.POST("/generate", draftHandler.Generate)
			drafts.POST("/publish", draftHandler.Publish)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "sports-newsroom-api",
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("session_id", c.GetString(sessionKey)).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+sessionHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", sessionHeader+", Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// sessionMiddleware resolves the browser session id, issuing a new one when
// the header is missing or malformed, and echoes it back.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sessionHeader)
		if !validation.IsValidSessionID(id) {
			id = uuid.New().String()
		}
		c.Set(sessionKey, id)
		c.Header(sessionHeader, id)
		c.Next()
	}
}
