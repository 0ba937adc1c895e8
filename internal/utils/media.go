package utils

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"genai-gateway/internal/genai"

	"github.com/google/uuid"
)

// 下载媒体文件的大小上限
const maxDownloadBytes = 50 << 20

// LoadMedia 解析 data URI，或从 http(s) URL 下载媒体
func LoadMedia(ctx context.Context, ref string) (*genai.Media, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "data:"):
		return ParseDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, mimeType, err := DownloadMedia(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &genai.Media{Data: data, MIMEType: mimeType}, nil
	default:
		return nil, fmt.Errorf("invalid media reference: expected http(s) URL or data URI")
	}
}

// ParseDataURI 解析 data:<mime>;base64,<data> 形式的 URI
func ParseDataURI(uri string) (*genai.Media, error) {
	parts := strings.SplitN(uri, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid data URI format")
	}
	if !strings.HasSuffix(parts[0], ";base64") {
		return nil, fmt.Errorf("invalid data URI format: only base64 encoding is supported")
	}

	mimeType := strings.TrimPrefix(strings.TrimSuffix(parts[0], ";base64"), "data:")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return &genai.Media{Data: data, MIMEType: mimeType}, nil
}

// DownloadMedia 从 URL 下载文件，返回数据和 MIME 类型
func DownloadMedia(ctx context.Context, url string) ([]byte, string, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download media: status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("media exceeds %d bytes", maxDownloadBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" {
		// 根据文件扩展名推断 MIME 类型
		mimeType = InferMimeTypeFromURL(url)
	}

	return data, mimeType, nil
}

// InferMimeTypeFromURL 从 URL 推断 MIME 类型（不区分大小写）
func InferMimeTypeFromURL(url string) string {
	u := strings.ToLower(url)
	if idx := strings.IndexAny(u, "?#"); idx >= 0 {
		u = u[:idx]
	}

	switch {
	case strings.HasSuffix(u, ".jpg"), strings.HasSuffix(u, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(u, ".png"):
		return "image/png"
	case strings.HasSuffix(u, ".gif"):
		return "image/gif"
	case strings.HasSuffix(u, ".webp"):
		return "image/webp"
	case strings.HasSuffix(u, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(u, ".txt"):
		return "text/plain"
	case strings.HasSuffix(u, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(u, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(u, ".m4a"):
		return "audio/mp4"
	case strings.HasSuffix(u, ".ogg"):
		return "audio/ogg"
	}
	return "application/octet-stream"
}

// GenerateImagePath 生成图片路径：images/yyyy-MM-dd/
func GenerateImagePath() string {
	return fmt.Sprintf("images/%s/", time.Now().Format("2006-01-02"))
}

// GenerateImageFileName 生成图片文件名：{uuid}_{timestamp}_{random}.ext
func GenerateImageFileName(mimeType string) string {
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)

	return fmt.Sprintf("%s_%d_%x%s", uuid.New().String(), time.Now().Unix(), randomBytes, GetExtensionFromMimeType(mimeType))
}

// GetExtensionFromMimeType 根据 MIME 类型获取文件扩展名（不区分大小写）
func GetExtensionFromMimeType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	case "audio/flac":
		return ".flac"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}

// TruncateForLog 截断长字符串用于日志，避免打印过长内容（如 base64）。
// 按字节计数，但不会截断在多字节字符中间
func TruncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:runeBoundary(s, max)]
	}
	return s[:runeBoundary(s, max-3)] + "..."
}

// runeBoundary 返回不大于 n 的最近字符边界
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
