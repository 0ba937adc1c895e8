package oss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"genai-gateway/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client S3 兼容的 OSS 客户端实现
type S3Client struct {
	client       *s3.Client
	httpClient   *http.Client
	endpoint     string // 带协议的完整端点，为空表示 AWS 默认端点
	region       string
	usePathStyle bool
}

var _ OSSIface = (*S3Client)(nil)

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint     string // 服务端点，例如：s3.amazonaws.com、oss-cn-hangzhou.aliyuncs.com 或 http://127.0.0.1:9000
	Region       string // 区域，例如：us-east-1 或 cn-hangzhou
	AccessKey    string // Access Key ID
	SecretKey    string // Secret Access Key
	UsePathStyle bool   // MinIO 等服务需要 path-style 访问
}

// NewS3Client 创建新的 S3 客户端
func NewS3Client(cfg S3Config) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{
		client:       client,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		endpoint:     endpoint,
		region:       cfg.Region,
		usePathStyle: cfg.UsePathStyle,
	}, nil
}

// normalizeEndpoint 没有协议时默认使用 https
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

// UploadFile 上传文件到 OSS
func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	fields := map[string]interface{}{
		"bucket":       bucket,
		"key":          key,
		"content_type": contentType,
	}
	common.WithFields(fields).Debug("Starting file upload to OSS")

	body, err := io.ReadAll(reader)
	if err != nil {
		common.WithError(err).WithFields(fields).Error("Failed to read file for upload")
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	// 阿里云 OSS 不支持 SDK PutObject 使用的 aws-chunked 编码，
	// 改为预签名 PUT URL + 原生 HTTP 上传
	if strings.Contains(c.endpoint, ".aliyuncs.com") {
		err = c.presignedPut(ctx, bucket, key, body, contentType)
	} else {
		_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			err = fmt.Errorf("failed to upload file: %w", err)
		}
	}
	if err != nil {
		common.WithError(err).WithFields(fields).WithField("size", len(body)).Error("Failed to upload file to OSS")
		return "", err
	}

	filePath := fmt.Sprintf("%s/%s", bucket, key)
	common.WithFields(map[string]interface{}{
		"file_path": filePath,
		"size":      len(body),
	}).Info("File uploaded to OSS successfully")

	return filePath, nil
}

func (c *S3Client) presignedPut(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	presigned, err := s3.NewPresignClient(c.client).PresignPutObject(reqCtx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to presign PUT URL: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, presigned.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, v := range presigned.SignedHeader {
		for _, hv := range v {
			req.Header.Add(k, hv)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file via presigned PUT: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("OSS upload failed: status code %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// GetSignedURL 获取文件的带签名 URL
func (c *S3Client) GetSignedURL(ctx context.Context, bucket, key string, expiresIn int64) (string, error) {
	request, err := s3.NewPresignClient(c.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Duration(expiresIn) * time.Second
	})
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": bucket,
			"key":    key,
		}).Error("Failed to generate signed URL")
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}

	return request.URL, nil
}

// UploadFileWithURL 上传文件并返回访问 URL
func (c *S3Client) UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string, expiresIn int64) (string, error) {
	if _, err := c.UploadFile(ctx, bucket, key, reader, contentType); err != nil {
		return "", err
	}

	if expiresIn > 0 {
		return c.GetSignedURL(ctx, bucket, key, expiresIn)
	}
	return c.buildObjectURL(bucket, key), nil
}

// buildObjectURL 构造对象的公开 URL（不带签名）
func (c *S3Client) buildObjectURL(bucket, key string) string {
	if c.endpoint != "" {
		if c.usePathStyle {
			return fmt.Sprintf("%s/%s/%s", c.endpoint, bucket, key)
		}
		scheme, host, _ := strings.Cut(c.endpoint, "://")
		return fmt.Sprintf("%s://%s.%s/%s", scheme, bucket, host, key)
	}

	if c.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, key)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}
