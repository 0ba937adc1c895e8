package handler

import (
	"net/http"
	"time"

	"genai-gateway/common"

	"github.com/gin-gonic/gin"
)

// NewRouter 注册全部路由。maxUploadBytes <= 0 表示不限制请求体大小
func NewRouter(h *Handler, maxUploadBytes int64) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if maxUploadBytes > 0 {
		r.MaxMultipartMemory = maxUploadBytes
		r.Use(limitBody(maxUploadBytes))
	}

	r.GET("/healthz", h.Health)
	r.POST("/generate-text", h.GenerateText)
	r.POST("/generate-vision", h.GenerateVision)
	r.POST("/analyze-document", h.AnalyzeDocument)
	r.POST("/generate-from-audio", h.GenerateFromAudio)
	r.POST("/generate-image", h.GenerateImage)

	return r
}

// requestLogger 通过 logrus 记录访问日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		common.WithFields(map[string]interface{}{
			"remote":   c.ClientIP(),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("HTTP request")
	}
}

// limitBody 限制请求体大小（额外留 1MB 给 multipart 头部和其他字段）
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+(1<<20))
		c.Next()
	}
}
