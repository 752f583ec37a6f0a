package logger

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging interface used throughout the service.
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

// Config controls level, format, and the service tag on every entry.
type Config struct {
	Level       string
	Format      string // json or text
	ServiceName string
}

type structuredLogger struct {
	logger *logrus.Logger
	fields map[string]interface{}
}

// correlationIDKey matches the value set by the correlation middleware.
type contextKey string

const CorrelationIDKey contextKey = "correlation_id"

// New creates a logrus-backed structured logger.
func New(cfg Config) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano, FullTimestamp: true})
	}
	l.SetOutput(os.Stdout)

	return &structuredLogger{
		logger: l,
		fields: map[string]interface{}{"service": cfg.ServiceName},
	}
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Info(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Warn(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	l.entry(ctx, err, fields).Error(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Debug(message)
}

func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &structuredLogger{logger: l.logger, fields: merged}
}

func (l *structuredLogger) entry(ctx context.Context, err error, fields map[string]interface{}) *logrus.Entry {
	merged := logrus.Fields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	if ctx != nil {
		if id, ok := ctx.Value(CorrelationIDKey).(string); ok && id != "" {
			merged["correlation_id"] = id
		}
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	return l.logger.WithFields(merged)
}

// NewNop returns a logger that discards everything; handy in tests.
func NewNop() Logger {
	l := logrus.New()
	l.SetOutput(discard{})
	return &structuredLogger{logger: l, fields: map[string]interface{}{}}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
