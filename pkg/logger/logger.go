package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger   = zap.NewNop()
	logLevel = zap.NewAtomicLevel()
)

// Options 日志输出配置
type Options struct {
	Dir        string // 日志目录，默认 logs
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool // 是否同时输出到控制台
}

func defaultOptions() Options {
	return Options{
		Dir:        "logs",
		MaxSizeMB:  500,
		MaxBackups: 7,
		MaxAgeDays: 7,
		Console:    true,
	}
}

// NewLogger 创建 service 级别的 root logger（文件 JSON + 控制台）
func NewLogger(serviceName string, opts ...func(*Options)) *zap.Logger {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		panic(err)
	}
	logFile := filepath.Join(o.Dir, serviceName+".log")

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.LevelKey = "level"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	// 使用lumberjack进行日志轮转
	var writer io.Writer = &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   true,
	}

	cores := []zapcore.Core{zapcore.NewCore(jsonEncoder, zapcore.AddSync(writer), logLevel)}
	if o.Console {
		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.InfoLevel))
	}

	logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller()).With(zap.String("service", serviceName))
	return logger
}

// WithDir 指定日志目录
func WithDir(dir string) func(*Options) {
	return func(o *Options) {
		if dir != "" {
			o.Dir = dir
		}
	}
}

// WithoutConsole 关闭控制台输出（CLI 模式下避免污染 stdout）
func WithoutConsole() func(*Options) {
	return func(o *Options) { o.Console = false }
}

func SetLogLevel(level string) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return
	}
	logLevel.SetLevel(zapLevel)
	logger.Info("Log level set to", zap.String("level", level))
}

// Component 返回带组件名的子 logger
func Component(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		l = logger
	}
	return l.With(zap.String("component", name))
}

func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()

	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// NewLoggerWithTrace 仅在 ctx 携带有效 span 时注入 trace 信息
func NewLoggerWithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if span := SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		return logger.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return logger
}
