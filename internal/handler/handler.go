// Package handler 通过 gin 暴露 HTTP 接口。
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"genai-gateway/common"
	"genai-gateway/internal/genai"
	"genai-gateway/internal/studio"

	"github.com/gin-gonic/gin"
)

// Studio 处理器依赖的业务能力
type Studio interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	DescribeImage(ctx context.Context, prompt string, image *genai.Media) (string, error)
	AnalyzeDocument(ctx context.Context, prompt string, document *genai.Media) (string, error)
	TranscribeAudio(ctx context.Context, prompt string, audio *genai.Media) (string, error)
	GenerateImage(ctx context.Context, prompt string) (*studio.GeneratedImage, error)
}

// Handler HTTP 处理器
type Handler struct {
	studio Studio
}

// NewHandler 创建处理器
func NewHandler(s Studio) *Handler {
	return &Handler{studio: s}
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateText POST /generate-text
func (h *Handler) GenerateText(c *gin.Context) {
	var req promptRequest
	// 请求体无法解析时按未传 prompt 处理
	_ = c.ShouldBindJSON(&req)

	output, err := h.studio.GenerateText(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": output})
}

// GenerateVision POST /generate-vision，multipart 字段 image
func (h *Handler) GenerateVision(c *gin.Context) {
	media, ok := readUpload(c, "image", "No image uploaded")
	if !ok {
		return
	}

	output, err := h.studio.DescribeImage(c.Request.Context(), c.PostForm("prompt"), media)
	if err != nil {
		respondMediaError(c, err, "No image uploaded")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": output})
}

// AnalyzeDocument POST /analyze-document，multipart 字段 file
func (h *Handler) AnalyzeDocument(c *gin.Context) {
	media, ok := readUpload(c, "file", "No document uploaded")
	if !ok {
		return
	}

	output, err := h.studio.AnalyzeDocument(c.Request.Context(), c.PostForm("prompt"), media)
	if err != nil {
		respondMediaError(c, err, "No document uploaded")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": output})
}

// GenerateFromAudio POST /generate-from-audio，multipart 字段 audio
func (h *Handler) GenerateFromAudio(c *gin.Context) {
	media, ok := readUpload(c, "audio", "No audio uploaded")
	if !ok {
		return
	}

	output, err := h.studio.TranscribeAudio(c.Request.Context(), c.PostForm("prompt"), media)
	if err != nil {
		respondMediaError(c, err, "No audio uploaded")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcription": output})
}

// GenerateImage POST /generate-image
func (h *Handler) GenerateImage(c *gin.Context) {
	var req promptRequest
	_ = c.ShouldBindJSON(&req)

	img, err := h.studio.GenerateImage(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

// Health GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readUpload 读取上传文件到内存，失败时已经写好响应
func readUpload(c *gin.Context, field, missingMessage string) (*genai.Media, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, "Uploaded file is too large", err)
			return nil, false
		}
		abort(c, http.StatusBadRequest, missingMessage, err)
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	common.WithFields(map[string]interface{}{
		"field":     field,
		"filename":  header.Filename,
		"mime_type": mimeType,
		"size":      len(data),
	}).Debug("Upload received")

	return &genai.Media{Data: data, MIMEType: mimeType}, true
}

func respondMediaError(c *gin.Context, err error, missingMessage string) {
	if errors.Is(err, studio.ErrMediaRequired) {
		abort(c, http.StatusBadRequest, missingMessage, err)
		return
	}
	respondError(c, err)
}

// respondError 除缺少上传文件外，所有错误都返回 500 和原始错误信息
func respondError(c *gin.Context, err error) {
	abort(c, http.StatusInternalServerError, err.Error(), err)
}

func abort(c *gin.Context, status int, message string, err error) {
	common.WithError(err).WithFields(map[string]interface{}{
		"path":   c.Request.URL.Path,
		"status": status,
	}).Error("Request failed")
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
