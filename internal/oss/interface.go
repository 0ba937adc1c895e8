package oss

import (
	"context"
	"io"
)

// OSSIface OSS 客户端接口
type OSSIface interface {
	// UploadFile 上传文件到 OSS，返回文件路径（bucket/key）
	UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error)

	// GetSignedURL 获取文件的带签名 URL，expiresIn 为过期时间（秒）
	GetSignedURL(ctx context.Context, bucket, key string, expiresIn int64) (string, error)

	// UploadFileWithURL 上传文件并返回访问 URL。
	// expiresIn > 0 时返回带签名的 URL，否则返回公开访问 URL
	UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string, expiresIn int64) (string, error)
}
