package studio

import (
	"fmt"

	"genai-gateway/common"
	"genai-gateway/internal/genai"
	"genai-gateway/internal/genai/gemini"
	"genai-gateway/internal/genai/openai"
	"genai-gateway/internal/oss"
	"genai-gateway/internal/raster"
)

// NewCompleterFromConfig 根据 GENAI_PROVIDER 创建补全客户端
func NewCompleterFromConfig(cfg *common.Config) (genai.Completer, error) {
	switch cfg.GenAIProvider {
	case common.ProviderGemini:
		return gemini.NewGeminiClientFromConfig(cfg)
	case common.ProviderOpenAI:
		return openai.NewOpenAIClientFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported GENAI_PROVIDER: %s", cfg.GenAIProvider)
	}
}

// NewServiceFromConfig 从配置组装服务
func NewServiceFromConfig(cfg *common.Config) (*Service, error) {
	completer, err := NewCompleterFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.GenAIProvider, err)
	}

	var storage *Storage
	// 当格式为 "url" 时，生成的 PNG 额外上传到 OSS
	if cfg.OSSUploadEnabled() {
		ossClient, err := oss.NewOSSClientFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OSS client: %w", err)
		}
		storage = &Storage{Client: ossClient, Bucket: cfg.OSSBucket, ExpiresIn: cfg.OSSURLExpiresSeconds}
	}

	return NewService(completer, raster.NewSVGRasterizerFromConfig(cfg), storage), nil
}
