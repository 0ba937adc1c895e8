package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"genai-gateway/common"
	"genai-gateway/internal/genai"
	"genai-gateway/internal/studio"
	"genai-gateway/internal/utils"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Studio MCP tools 依赖的业务能力
type Studio interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	DescribeImage(ctx context.Context, prompt string, image *genai.Media) (string, error)
	AnalyzeDocument(ctx context.Context, prompt string, document *genai.Media) (string, error)
	TranscribeAudio(ctx context.Context, prompt string, audio *genai.Media) (string, error)
	GenerateImage(ctx context.Context, prompt string) (*studio.GeneratedImage, error)
}

type mediaOperation func(ctx context.Context, prompt string, media *genai.Media) (string, error)

const pngDataURIPrefix = "data:image/png;base64,"

const mediaDescription = "Media to analyze: an http(s) URL or a base64 data URI (data:<mime>;base64,<data>)."

// RegisterStudioTools 注册与 HTTP 接口一一对应的 MCP tools：
//   - generate_text        纯文本对话
//   - generate_vision      图片理解
//   - analyze_document     文档分析
//   - generate_from_audio  音频转写与说明
//   - generate_image       生成 SVG 并转换为 PNG
func RegisterStudioTools(s *server.MCPServer, svc Studio) error {
	s.AddTool(mcp.NewTool(
		"generate_text",
		mcp.WithDescription("Generate a text answer for a prompt."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Prompt sent to the model."),
		),
	), generateTextHandler(svc))

	s.AddTool(newMediaTool("generate_vision", "Describe an image. Uses a default Indonesian prompt when none is given."),
		mediaHandler("generate_vision", svc.DescribeImage))
	s.AddTool(newMediaTool("analyze_document", "Analyze a document such as a PDF. Uses a default Indonesian prompt when none is given."),
		mediaHandler("analyze_document", svc.AnalyzeDocument))
	s.AddTool(newMediaTool("generate_from_audio", "Transcribe and explain an audio recording. Uses a default Indonesian prompt when none is given."),
		mediaHandler("generate_from_audio", svc.TranscribeAudio))

	s.AddTool(mcp.NewTool(
		"generate_image",
		mcp.WithDescription("Generate an SVG image for a prompt and return it together with a PNG rendering."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Description of the image to draw."),
		),
	), generateImageHandler(svc))

	return nil
}

func newMediaTool(name, description string) mcp.Tool {
	return mcp.NewTool(
		name,
		mcp.WithDescription(description),
		mcp.WithString("media",
			mcp.Required(),
			mcp.Description(mediaDescription),
		),
		mcp.WithString("prompt",
			mcp.Description("Optional prompt sent together with the media."),
		),
		mcp.WithString("mime_type",
			mcp.Description("Optional MIME type overriding the detected one."),
		),
	)
}

func generateTextHandler(svc Studio) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("prompt parameter is required: %v", err)), nil
		}

		output, err := svc.GenerateText(ctx, prompt)
		if err != nil {
			common.WithError(err).Error("generate_text failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(output), nil
	}
}

func mediaHandler(name string, op mediaOperation) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := req.RequireString("media")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("media parameter is required: %v", err)), nil
		}

		media, err := utils.LoadMedia(ctx, ref)
		if err != nil {
			common.WithError(err).WithField("tool", name).Error("Failed to load media")
			return mcp.NewToolResultError(fmt.Sprintf("failed to load media: %v", err)), nil
		}
		if mimeType := req.GetString("mime_type", ""); mimeType != "" {
			media.MIMEType = mimeType
		}

		common.WithFields(map[string]interface{}{
			"tool":      name,
			"mime_type": media.MIMEType,
			"size":      len(media.Data),
		}).Info("MCP media tool called")

		output, err := op(ctx, req.GetString("prompt", ""), media)
		if err != nil {
			common.WithError(err).WithField("tool", name).Error("MCP media tool failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(output), nil
	}
}

// imageSummary generate_image 的文本部分，PNG 作为图片内容单独返回
type imageSummary struct {
	SVG  string `json:"svg"`
	Note string `json:"note"`
	URL  string `json:"url,omitempty"`
}

func generateImageHandler(svc Studio) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("prompt parameter is required: %v", err)), nil
		}

		img, err := svc.GenerateImage(ctx, prompt)
		if err != nil {
			common.WithError(err).Error("generate_image failed")
			return mcp.NewToolResultError(err.Error()), nil
		}

		summary, err := json.Marshal(imageSummary{SVG: img.SVG, Note: img.Note, URL: img.URL})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}

		pngBase64 := strings.TrimPrefix(img.PNG, pngDataURIPrefix)
		return mcp.NewToolResultImage(string(summary), pngBase64, "image/png"), nil
	}
}
