package api

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/config"
	"github.com/sirupsen/logrus"
)

// ServiceName 日志默认字段中的服务名
const ServiceName = "ministry-exchange"

// LogDir 文件输出目录
var LogDir = "logs"

var (
	defaultLogger *logrus.Logger
	loggerMu      sync.Mutex
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

func newFormatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
			},
		}
	}
	return &logrus.TextFormatter{TimestampFormat: timestampFormat, FullTimestamp: true}
}

// openOutputs 解析 stdout/file/both,未知取值退回 stdout
func openOutputs(output string) ([]io.Writer, error) {
	var writers []io.Writer
	if output == "stdout" || output == "both" {
		writers = append(writers, os.Stdout)
	}
	if output == "file" || output == "both" {
		if err := os.MkdirAll(LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		file, err := os.OpenFile(filepath.Join(LogDir, ServiceName+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	return writers, nil
}

// NewLogger 创建默认 JSON 日志记录器
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(newFormatter("json"))
	logger.SetLevel(logrus.InfoLevel)
	logger.SetOutput(os.Stdout)
	return logger
}

// NewLoggerFromConfig 根据配置创建日志记录器
func NewLoggerFromConfig(cfg *config.LogConfig) (*logrus.Logger, error) {
	writers, err := openOutputs(cfg.Output)
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger := logrus.New()
	logger.SetFormatter(newFormatter(cfg.Format))
	logger.SetLevel(level)
	logger.SetOutput(io.MultiWriter(writers...))

	// 日志聚合按服务名区分
	logger.AddHook(&defaultFieldsHook{fields: logrus.Fields{"service": ServiceName}})
	return logger, nil
}

// defaultFieldsHook 给每条日志补充固定字段,不覆盖调用方已设置的同名字段
type defaultFieldsHook struct {
	fields logrus.Fields
}

func (h *defaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *defaultFieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

// GetLogger 获取默认日志记录器
func GetLogger() *logrus.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger()
	}
	return defaultLogger
}

// SetLogger 替换默认日志记录器
func SetLogger(logger *logrus.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}
