// Package genai 定义各 GenAI 提供方共用的补全接口与错误。
package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedResponse 上游返回的结构不符合预期（没有候选、没有内容或没有文本）
	ErrUnexpectedResponse = errors.New("unexpected upstream response shape")

	// ErrUnsupportedMedia 当前提供方不支持该 MIME 类型的内联数据
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// Media 随提示词一起发送的二进制内容
type Media struct {
	Data     []byte
	MIMEType string
}

// Base64 返回内容的 base64 编码
func (m *Media) Base64() string {
	return base64.StdEncoding.EncodeToString(m.Data)
}

// DataURI 返回 data:<mime>;base64,<data> 形式的 URI
func (m *Media) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", m.MIMEType, m.Base64())
}

// Completer 文本/多模态补全服务
type Completer interface {
	// Complete 发送提示词（以及可选的内联数据），返回第一个候选的文本
	Complete(ctx context.Context, prompt string, media *Media) (string, error)
}

// UnexpectedResponse 构造包装了 ErrUnexpectedResponse 的错误
func UnexpectedResponse(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedResponse, fmt.Sprintf(format, args...))
}
