package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"genai-gateway/common"
	"genai-gateway/internal/genai"
	"genai-gateway/internal/utils"

	googleai "google.golang.org/genai"
)

// Client Gemini 补全客户端实现
type Client struct {
	client  *googleai.Client
	model   string
	timeout time.Duration
}

var _ genai.Completer = (*Client)(nil)

// Config Gemini 客户端配置
type Config struct {
	APIKey    string        // API Key
	BaseURL   string        // 自定义 Base URL，如果为空则使用默认值
	ModelName string        // 模型名称，例如：gemini-2.5-flash
	Timeout   time.Duration // 单次请求超时时间，<= 0 表示不限制
	// HTTPClient 可选，主要用于测试
	HTTPClient *http.Client
}

// NewClient 创建新的 Gemini 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	clientConfig := &googleai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    googleai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}

	// 如果提供了自定义 Base URL，设置 HTTPOptions
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = googleai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		}
	}

	client, err := googleai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:  client,
		model:   cfg.ModelName,
		timeout: cfg.Timeout,
	}, nil
}

// NewGeminiClientFromConfig 从配置创建 Gemini 客户端
func NewGeminiClientFromConfig(cfg *common.Config) (*Client, error) {
	return NewClient(Config{
		APIKey:    cfg.GenAIAPIKey,
		BaseURL:   cfg.GenAIBaseURL,
		ModelName: cfg.GenAIModelName,
		Timeout:   time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
	})
}

// Complete 发送提示词和可选的内联数据，返回第一个候选的第一段文本
func (c *Client) Complete(ctx context.Context, prompt string, media *genai.Media) (string, error) {
	fields := map[string]interface{}{
		"model":  c.model,
		"prompt": utils.TruncateForLog(prompt, 200),
	}
	if media != nil {
		fields["mime_type"] = media.MIMEType
		fields["size"] = len(media.Data)
	}
	common.WithFields(fields).Debug("Starting Gemini content generation")

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	parts := []*googleai.Part{
		{Text: prompt},
	}
	if media != nil {
		// SDK 在序列化时会把 Data 编码为 base64
		parts = append(parts, &googleai.Part{
			InlineData: &googleai.Blob{
				Data:     media.Data,
				MIMEType: media.MIMEType,
			},
		})
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, []*googleai.Content{
		{Role: "user", Parts: parts},
	}, nil)
	if err != nil {
		common.WithError(err).WithFields(fields).Error("Failed to generate content from Gemini API")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := firstText(result)
	if err != nil {
		common.WithError(err).WithFields(fields).Error("Unexpected Gemini response")
		return "", err
	}

	common.WithFields(map[string]interface{}{
		"model":  c.model,
		"length": len(text),
	}).Debug("Gemini content generated successfully")

	return text, nil
}

// firstText 取第一个候选中第一段非思考过程的文本
func firstText(result *googleai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", genai.UnexpectedResponse("no candidates in response")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", genai.UnexpectedResponse("no content in candidate")
	}

	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			return part.Text, nil
		}
	}

	return "", genai.UnexpectedResponse("no text part in candidate")
}
