// Package studio 实现网关对外提供的五种能力：文本、图片理解、文档分析、
// 音频转写以及 SVG 生图（附带 PNG 转换）。
package studio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"genai-gateway/common"
	"genai-gateway/internal/genai"
	"genai-gateway/internal/oss"
	"genai-gateway/internal/raster"
	"genai-gateway/internal/utils"
)

// 未传 prompt 时使用的默认提示词
const (
	DefaultVisionPrompt   = "Tolong jelaskan isi gambar ini."
	DefaultDocumentPrompt = "Tolong jelaskan isi dokumen ini."
	DefaultAudioPrompt    = "Tolong transkrip dan jelaskan isi rekaman audio berikut."

	imagePromptTemplate = "Buatkan gambar dalam format SVG saja tanpa penjelasan: %s"

	// ImageNote 生图结果附带的说明
	ImageNote = "Generated using Gemini Flash (Free) + SVG-to-PNG conversion"
)

var (
	// ErrSVGNotFound 模型输出中没有 SVG 片段
	ErrSVGNotFound = errors.New("SVG tidak ditemukan dalam output AI.")

	// ErrMediaRequired 需要上传文件的接口没有收到文件
	ErrMediaRequired = errors.New("media is required")
)

// GeneratedImage 生图结果
type GeneratedImage struct {
	SVG  string `json:"svg"`
	PNG  string `json:"png"`
	Note string `json:"note"`
	// URL 启用 OSS 上传时 PNG 的访问地址
	URL string `json:"url,omitempty"`
}

// Storage 生成的 PNG 上传配置
type Storage struct {
	Client oss.OSSIface
	Bucket string
	// ExpiresIn > 0 时返回带签名的 URL（秒）
	ExpiresIn int64
}

// Service 各个入口（HTTP、MCP）共用的业务逻辑，构造后只读
type Service struct {
	completer genai.Completer
	converter raster.Converter
	storage   *Storage
}

// NewService 创建服务，storage 可以为 nil
func NewService(completer genai.Completer, converter raster.Converter, storage *Storage) *Service {
	return &Service{
		completer: completer,
		converter: converter,
		storage:   storage,
	}
}

// GenerateText 纯文本对话
func (s *Service) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.completer.Complete(ctx, prompt, nil)
}

// DescribeImage 图片理解
func (s *Service) DescribeImage(ctx context.Context, prompt string, image *genai.Media) (string, error) {
	return s.completeMedia(ctx, orDefault(prompt, DefaultVisionPrompt), image)
}

// AnalyzeDocument 文档分析
func (s *Service) AnalyzeDocument(ctx context.Context, prompt string, document *genai.Media) (string, error) {
	return s.completeMedia(ctx, orDefault(prompt, DefaultDocumentPrompt), document)
}

// TranscribeAudio 音频转写与说明
func (s *Service) TranscribeAudio(ctx context.Context, prompt string, audio *genai.Media) (string, error) {
	return s.completeMedia(ctx, orDefault(prompt, DefaultAudioPrompt), audio)
}

// GenerateImage 让模型输出 SVG，提取片段后转换为 PNG
func (s *Service) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	output, err := s.completer.Complete(ctx, fmt.Sprintf(imagePromptTemplate, prompt), nil)
	if err != nil {
		return nil, err
	}

	svg := utils.ExtractSVG(output)
	if svg == "" {
		common.WithField("output", utils.TruncateForLog(output, 200)).Warn("No SVG fragment in model output")
		return nil, ErrSVGNotFound
	}

	pngData, err := s.converter.ToPNG([]byte(svg))
	if err != nil {
		return nil, fmt.Errorf("failed to convert svg to png: %w", err)
	}

	result := &GeneratedImage{
		SVG:  svg,
		PNG:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData),
		Note: ImageNote,
	}

	if s.storage != nil {
		url, err := s.upload(ctx, pngData)
		if err != nil {
			return nil, err
		}
		result.URL = url
	}

	return result, nil
}

func (s *Service) upload(ctx context.Context, pngData []byte) (string, error) {
	key := utils.GenerateImagePath() + utils.GenerateImageFileName("image/png")

	url, err := s.storage.Client.UploadFileWithURL(ctx, s.storage.Bucket, key, bytes.NewReader(pngData), "image/png", s.storage.ExpiresIn)
	if err != nil {
		return "", fmt.Errorf("failed to upload image to OSS: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"bucket": s.storage.Bucket,
		"key":    key,
	}).Info("Generated image uploaded to OSS")
	return url, nil
}

func (s *Service) completeMedia(ctx context.Context, prompt string, media *genai.Media) (string, error) {
	if media == nil || len(media.Data) == 0 {
		return "", ErrMediaRequired
	}
	return s.completer.Complete(ctx, prompt, media)
}

func orDefault(prompt, fallback string) string {
	if prompt == "" {
		return fallback
	}
	return prompt
}
