package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap logger
type Logger struct {
	*zap.Logger
}

// L is the process-wide logger. It is a no-op until Init is called so
// packages can log from tests without setup.
var L = &Logger{Logger: zap.NewNop()}

// Init builds the process logger. Development mode uses the console encoder.
func Init(level string, development bool) (*Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = ""

	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = lvl
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	L = &Logger{Logger: zl}
	return L, nil
}

// With creates a child logger and adds structured context to it
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a child logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}
