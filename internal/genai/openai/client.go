package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"genai-gateway/common"
	"genai-gateway/internal/genai"
	"genai-gateway/internal/utils"

	openaiapi "github.com/sashabaranov/go-openai"
)

// Client OpenAI 兼容接口的补全客户端。
//
// 媒体处理方式：
//   - image/*：作为 data URI 图片放入多段消息
//   - audio/*：调用语音转写接口，提示词作为转写提示
//   - text/*：内容直接拼接到提示词后
//   - 其他类型：返回 genai.ErrUnsupportedMedia
type Client struct {
	client             *openaiapi.Client
	model              string
	transcriptionModel string
	timeout            time.Duration
}

var _ genai.Completer = (*Client)(nil)

// Config OpenAI 客户端配置
type Config struct {
	APIKey             string
	BaseURL            string // 为空时使用官方地址
	ModelName          string
	TranscriptionModel string // 为空时使用 whisper-1
	Timeout            time.Duration
	HTTPClient         *http.Client
}

// NewClient 创建 OpenAI 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	clientConfig := openaiapi.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = openaiapi.Whisper1
	}

	return &Client{
		client:             openaiapi.NewClientWithConfig(clientConfig),
		model:              cfg.ModelName,
		transcriptionModel: transcriptionModel,
		timeout:            cfg.Timeout,
	}, nil
}

// NewOpenAIClientFromConfig 从配置创建 OpenAI 客户端
func NewOpenAIClientFromConfig(cfg *common.Config) (*Client, error) {
	return NewClient(Config{
		APIKey:    cfg.GenAIAPIKey,
		BaseURL:   cfg.GenAIBaseURL,
		ModelName: cfg.GenAIModelName,
		Timeout:   time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
	})
}

// Complete 实现 genai.Completer
func (c *Client) Complete(ctx context.Context, prompt string, media *genai.Media) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if media == nil {
		return c.chat(ctx, openaiapi.ChatCompletionMessage{
			Role:    openaiapi.ChatMessageRoleUser,
			Content: prompt,
		})
	}

	mimeType := strings.ToLower(media.MIMEType)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return c.chat(ctx, openaiapi.ChatCompletionMessage{
			Role: openaiapi.ChatMessageRoleUser,
			MultiContent: []openaiapi.ChatMessagePart{
				{Type: openaiapi.ChatMessagePartTypeText, Text: prompt},
				{
					Type:     openaiapi.ChatMessagePartTypeImageURL,
					ImageURL: &openaiapi.ChatMessageImageURL{URL: media.DataURI()},
				},
			},
		})
	case strings.HasPrefix(mimeType, "audio/"):
		return c.transcribe(ctx, prompt, media)
	case strings.HasPrefix(mimeType, "text/"):
		return c.chat(ctx, openaiapi.ChatCompletionMessage{
			Role:    openaiapi.ChatMessageRoleUser,
			Content: prompt + "\n\n" + string(media.Data),
		})
	default:
		return "", fmt.Errorf("%w: %s", genai.ErrUnsupportedMedia, media.MIMEType)
	}
}

func (c *Client) chat(ctx context.Context, msg openaiapi.ChatCompletionMessage) (string, error) {
	common.WithFields(map[string]interface{}{
		"model":     c.model,
		"multipart": len(msg.MultiContent) > 0,
	}).Debug("Starting OpenAI chat completion")

	resp, err := c.client.CreateChatCompletion(ctx, openaiapi.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openaiapi.ChatCompletionMessage{msg},
	})
	if err != nil {
		common.WithError(err).WithField("model", c.model).Error("Failed to call OpenAI chat completion")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", genai.UnexpectedResponse("no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", genai.UnexpectedResponse("empty message in first choice")
	}
	return content, nil
}

func (c *Client) transcribe(ctx context.Context, prompt string, media *genai.Media) (string, error) {
	common.WithFields(map[string]interface{}{
		"model":     c.transcriptionModel,
		"mime_type": media.MIMEType,
		"size":      len(media.Data),
	}).Debug("Starting OpenAI audio transcription")

	// 接口根据文件扩展名判断音频格式
	resp, err := c.client.CreateTranscription(ctx, openaiapi.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: "audio" + utils.GetExtensionFromMimeType(media.MIMEType),
		Reader:   bytes.NewReader(media.Data),
		Prompt:   prompt,
	})
	if err != nil {
		common.WithError(err).WithField("model", c.transcriptionModel).Error("Failed to call OpenAI transcription")
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	if resp.Text == "" {
		return "", genai.UnexpectedResponse("empty transcription")
	}
	return resp.Text, nil
}
