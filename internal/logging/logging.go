package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Logger is a structured logger scoped to a component.
type Logger struct {
	zl      *zap.Logger
	service string
}

// New creates a logger for the given component.
func New(service string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	zl := zap.New(core).With(zap.String("service", service))

	return &Logger{zl: zl, service: service}
}

// NewWithCore creates a logger backed by the given core. Intended for
// tests that observe log output.
func NewWithCore(core zapcore.Core, service string) *Logger {
	zl := zap.New(core).With(zap.String("service", service))
	return &Logger{zl: zl, service: service}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.zl.Debug(msg, zapFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.zl.Info(msg, zapFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.zl.Warn(msg, zapFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.zl.Error(msg, zapFields(fields)...)
}

func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.zl.Fatal(msg, zapFields(fields)...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func zapFields(fields []Fields) []zap.Field {
	out := make([]zap.Field, 0, 8)
	for _, f := range fields {
		for k, v := range f {
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
