package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// Logger 全局日志实例
	Logger *logrus.Logger

	loggerMu sync.Mutex
)

// LogConfig 日志配置
type LogConfig struct {
	Level    string // 日志级别: debug, info, warn, error
	Format   string // 日志格式: json, text
	Output   string // 输出位置: stdout, stderr, file
	FilePath string // 日志文件路径（当 Output 为 file 时）
}

// InitLogger 初始化日志系统
func InitLogger(cfg *LogConfig) error {
	logger := logrus.New()

	// 开启调用方信息（文件名和行号）
	logger.SetReportCaller(true)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(newFormatter(cfg.Format))

	output, err := openOutput(cfg)
	if err != nil {
		return err
	}
	logger.SetOutput(output)

	loggerMu.Lock()
	Logger = logger
	loggerMu.Unlock()
	return nil
}

// openOutput 根据配置选择日志输出位置
func openOutput(cfg *LogConfig) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if cfg.FilePath == "" {
			return os.Stdout, nil
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	default:
		return os.Stdout, nil
	}
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if Logger == nil {
		// 如果没有初始化，使用默认配置
		logger := logrus.New()
		logger.SetReportCaller(true)
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(newFormatter("text"))
		Logger = logger
	}
	return Logger
}

// newFormatter 创建带有文件名和行号信息的 Formatter
func newFormatter(format string) logrus.Formatter {
	// 只输出 "filename.go:line"
	callerPretty := func(frame *runtime.Frame) (function string, file string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
	}

	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{
			TimestampFormat:  "2006-01-02 15:04:05",
			CallerPrettyfier: callerPretty,
		}
	default:
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02 15:04:05",
			CallerPrettyfier: callerPretty,
		}
	}
}

// IsDebugEnabled 是否开启了 Debug 级别
func IsDebugEnabled() bool {
	return GetLogger().IsLevelEnabled(logrus.DebugLevel)
}

// Info 记录 Info 级别日志
func Info(args ...interface{}) {
	GetLogger().Info(args...)
}

// Infof 记录 Info 级别日志（格式化）
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// WithField 添加字段到日志
func WithField(key string, value interface{}) *logrus.Entry {
	return GetLogger().WithField(key, value)
}

// WithFields 添加多个字段到日志
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields(fields))
}

// WithError 添加错误到日志
func WithError(err error) *logrus.Entry {
	return GetLogger().WithError(err)
}
