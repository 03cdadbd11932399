package logger

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Diwakar-Gupta/pepper/pkg/utils/contextkey"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger atomic.Pointer[Logger]

// Logger wraps zap logger with context support
type Logger struct {
	zap *zap.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level"`      // debug, info, warn, error
	Format     string `yaml:"format"`     // json, console
	OutputPath string `yaml:"outputPath"` // file path or "stdout"
	ErrorPath  string `yaml:"errorPath"`  // internal zap errors, file path or "stderr"
}

// Init initializes the global logger
func Init(cfg Config) error {
	l, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	globalLogger.Store(l)
	return nil
}

// NewLogger creates a new logger instance
func NewLogger(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	out, err := openSink(cfg.OutputPath, os.Stdout)
	if err != nil {
		return nil, err
	}
	errOut, err := openSink(cfg.ErrorPath, os.Stderr)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, out, level)
	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(errOut),
	)
	return &Logger{zap: zapLogger}, nil
}

func openSink(path string, fallback *os.File) (zapcore.WriteSyncer, error) {
	switch path {
	case "", "stdout", "stderr":
		if path == "stdout" {
			return zapcore.Lock(os.Stdout), nil
		}
		if path == "stderr" {
			return zapcore.Lock(os.Stderr), nil
		}
		return zapcore.Lock(fallback), nil
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.AddSync(file), nil
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(time.RFC3339))
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// WithContext returns a zap logger carrying the fields found on ctx
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	fields := extractFieldsFromContext(ctx)
	if len(fields) == 0 {
		return l.zap
	}
	return l.zap.With(fields...)
}

func extractFieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if v := ctx.Value(contextkey.TraceID); v != nil {
		fields = append(fields, zap.String("trace_id", fmt.Sprint(v)))
	}
	if v := ctx.Value(contextkey.RequestID); v != nil {
		fields = append(fields, zap.String("request_id", fmt.Sprint(v)))
	}
	if v := ctx.Value(contextkey.SessionCode); v != nil {
		fields = append(fields, zap.String("session_code", fmt.Sprint(v)))
	}
	if v := ctx.Value(contextkey.MsgID); v != nil {
		fields = append(fields, zap.String("msg_id", fmt.Sprint(v)))
	}
	return fields
}

func current() *Logger {
	return globalLogger.Load()
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.WithContext(ctx).Debug(msg, fields...)
	}
}

// Info logs an info message
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.WithContext(ctx).Info(msg, fields...)
	}
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.WithContext(ctx).Warn(msg, fields...)
	}
}

// Error logs an error message
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.WithContext(ctx).Error(msg, fields...)
	}
}

// Fatal logs a fatal message and exits
func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.WithContext(ctx).Fatal(msg, fields...)
		return
	}
	os.Exit(1)
}

// Infof logs an info message with format
func Infof(ctx context.Context, format string, args ...interface{}) {
	if l := current(); l != nil {
		l.WithContext(ctx).Info(fmt.Sprintf(format, args...))
	}
}

// Warnf logs a warning message with format
func Warnf(ctx context.Context, format string, args ...interface{}) {
	if l := current(); l != nil {
		l.WithContext(ctx).Warn(fmt.Sprintf(format, args...))
	}
}

// Sync flushes the global logger
func Sync() error {
	if l := current(); l != nil {
		return l.Sync()
	}
	return nil
}

// Zap returns the underlying zap logger, or a no-op logger before Init.
func Zap() *zap.Logger {
	if l := current(); l != nil {
		return l.zap
	}
	return zap.NewNop()
}
