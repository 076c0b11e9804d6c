// Package logger provides the structured logger shared by every hoja service.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Debug(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

type zapLogger struct {
	logger *zap.Logger
}

// New builds a JSON logger writing to stdout. LOG_LEVEL selects the minimum level.
func New(serviceName string) Logger {
	level := zapcore.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			level = parsed
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	return &zapLogger{
		logger: zap.New(core).With(zap.String("service", serviceName)),
	}
}

// FromZap adapts an existing zap logger.
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{logger: l}
}

func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (l *zapLogger) Info(message string, fields map[string]interface{}) {
	l.logger.Info(message, toFields(fields)...)
}

func (l *zapLogger) Error(message string, fields map[string]interface{}) {
	l.logger.Error(message, toFields(fields)...)
}

func (l *zapLogger) Warn(message string, fields map[string]interface{}) {
	l.logger.Warn(message, toFields(fields)...)
}

func (l *zapLogger) Debug(message string, fields map[string]interface{}) {
	l.logger.Debug(message, toFields(fields)...)
}

func (l *zapLogger) Fatal(message string, fields map[string]interface{}) {
	l.logger.Fatal(message, toFields(fields)...)
}

func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}
