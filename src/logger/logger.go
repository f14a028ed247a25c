package logger

import (
	"fmt"
	"os"
	"strings"

	"price-stream/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name  string
	raw   *zap.Logger
	sugar *zap.SugaredLogger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance from the application config.
// A nil config yields an info-level production logger.
func NewLogger(config *models.MConfig, name string) (*Logger, error) {
	level, dev := "info", false
	if config != nil {
		if config.LogLevel != "" {
			level = config.LogLevel
		}
		dev = config.DevMode
	}

	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.EncoderConfig.TimeKey = "ts"

	raw, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return wrap(raw.Named(name), name), nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return wrap(zap.NewNop(), "nop")
}

// FromZap wraps an existing zap logger.
func FromZap(raw *zap.Logger, name string) *Logger {
	return wrap(raw.Named(name), name)
}

func wrap(raw *zap.Logger, name string) *Logger {
	return &Logger{name: name, raw: raw, sugar: raw.Sugar()}
}

// -----------------------------------------------------------------------------

// Named returns a child logger whose name is appended to the current one.
func (l *Logger) Named(name string) *Logger {
	return wrap(l.raw.Named(name), name)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	s := l.sugar.With(keysAndValues...)
	return &Logger{name: l.name, raw: s.Desugar(), sugar: s}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.raw
}

// Sync flushes buffered entries. Call before exit.
func (l *Logger) Sync() error {
	return l.raw.Sync()
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
	_ = l.raw.Sync()
	os.Exit(1)
}
