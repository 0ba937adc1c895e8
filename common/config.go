package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 支持的 GenAI 提供方
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// 生成图片的输出方式
const (
	ImageFormatBase64 = "base64"
	ImageFormatURL    = "url"
)

// Config 应用配置结构
type Config struct {
	// GenAI 提供方: gemini 或 openai
	GenAIProvider string

	GenAIBaseURL   string
	GenAIAPIKey    string
	GenAIModelName string
	// GenAI 请求超时时间（秒），<= 0 表示不设置超时
	GenAITimeoutSeconds int
	// 图片输出格式: base64 或 url（url 时会额外上传 PNG 到 OSS）
	GenAIImageFormat string

	ServerAddress string
	ServerPort    string
	// 上传文件大小上限（MB）
	MaxUploadMB int

	// SVG 转 PNG 的画布尺寸
	RasterDefaultSize int
	RasterMaxSize     int

	// OSS 配置
	OSSEndpoint     string
	OSSRegion       string
	OSSAccessKey    string
	OSSSecretKey    string
	OSSBucket       string
	OSSUsePathStyle bool // MinIO 等服务需要 path-style 访问

	// 上传后返回签名 URL 的有效期（秒），<= 0 时返回公开 URL
	OSSURLExpiresSeconds int64

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

var defaults = map[string]interface{}{
	"GENAI_PROVIDER":          ProviderGemini,
	"GENAI_BASE_URL":          "",
	"GENAI_API_KEY":           "",
	"GENAI_MODEL_NAME":        "gemini-2.5-flash",
	"GENAI_TIMEOUT_SECONDS":   60,
	"GENAI_IMAGE_FORMAT":      ImageFormatBase64,
	"SERVER_ADDRESS":          "0.0.0.0",
	"SERVER_PORT":             "3000",
	"MAX_UPLOAD_MB":           20,
	"RASTER_DEFAULT_SIZE":     512,
	"RASTER_MAX_SIZE":         4096,
	"OSS_ENDPOINT":            "",
	"OSS_REGION":              "us-east-1",
	"OSS_ACCESS_KEY":          "",
	"OSS_SECRET_KEY":          "",
	"OSS_BUCKET":              "",
	"OSS_USE_PATH_STYLE":      false,
	"OSS_URL_EXPIRES_SECONDS": 3600 * 24 * 7,
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "text",
	"LOG_OUTPUT":              "stdout",
	"LOG_FILE":                "",
}

// LoadConfig 加载配置：先读取 .env，再由 viper 合并环境变量与可选的配置文件
func LoadConfig(configFile string) (*Config, error) {
	// 加载 .env 文件（如果存在）
	if err := godotenv.Load(); err != nil {
		// stdout 可能是 MCP 协议通道，提示信息只写到 stderr
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := fromViper(v)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 初始化日志系统
	if err := InitLogger(config.LogConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		GenAIProvider:       strings.ToLower(v.GetString("GENAI_PROVIDER")),
		GenAIBaseURL:        v.GetString("GENAI_BASE_URL"),
		GenAIAPIKey:         v.GetString("GENAI_API_KEY"),
		GenAIModelName:      v.GetString("GENAI_MODEL_NAME"),
		GenAITimeoutSeconds: v.GetInt("GENAI_TIMEOUT_SECONDS"),
		GenAIImageFormat:    strings.ToLower(v.GetString("GENAI_IMAGE_FORMAT")),
		ServerAddress:       v.GetString("SERVER_ADDRESS"),
		ServerPort:          v.GetString("SERVER_PORT"),
		MaxUploadMB:         v.GetInt("MAX_UPLOAD_MB"),
		RasterDefaultSize:   v.GetInt("RASTER_DEFAULT_SIZE"),
		RasterMaxSize:       v.GetInt("RASTER_MAX_SIZE"),
		// OSS 配置
		OSSEndpoint:     v.GetString("OSS_ENDPOINT"),
		OSSRegion:       v.GetString("OSS_REGION"),
		OSSAccessKey:    v.GetString("OSS_ACCESS_KEY"),
		OSSSecretKey:    v.GetString("OSS_SECRET_KEY"),
		OSSBucket:       v.GetString("OSS_BUCKET"),
		OSSUsePathStyle: v.GetBool("OSS_USE_PATH_STYLE"),

		OSSURLExpiresSeconds: v.GetInt64("OSS_URL_EXPIRES_SECONDS"),
		// 日志配置
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
		LogOutput: v.GetString("LOG_OUTPUT"),
		LogFile:   v.GetString("LOG_FILE"),
	}
}

// Validate 校验必需的配置
func (c *Config) Validate() error {
	switch c.GenAIProvider {
	case ProviderGemini, ProviderOpenAI:
		if c.GenAIAPIKey == "" {
			return fmt.Errorf("GENAI_API_KEY is required when GENAI_PROVIDER=%s", c.GenAIProvider)
		}
	default:
		return fmt.Errorf("unsupported GENAI_PROVIDER: %s", c.GenAIProvider)
	}

	if c.GenAIModelName == "" {
		return fmt.Errorf("GENAI_MODEL_NAME is required")
	}

	switch c.GenAIImageFormat {
	case ImageFormatBase64:
	case ImageFormatURL:
		if c.OSSBucket == "" {
			return fmt.Errorf("OSS_BUCKET is required when GENAI_IMAGE_FORMAT=url")
		}
	default:
		return fmt.Errorf("unsupported GENAI_IMAGE_FORMAT: %s", c.GenAIImageFormat)
	}

	return nil
}

// GetServerAddr 返回完整的服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerAddress, c.ServerPort)
}

// OSSUploadEnabled 图片格式为 url 时启用 OSS 上传
func (c *Config) OSSUploadEnabled() bool {
	return c.GenAIImageFormat == ImageFormatURL
}

// LogConfig 返回日志配置
func (c *Config) LogConfig() *LogConfig {
	return &LogConfig{
		Level:    c.LogLevel,
		Format:   c.LogFormat,
		Output:   c.LogOutput,
		FilePath: c.LogFile,
	}
}
