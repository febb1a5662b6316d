package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects how log entries are written.
type Config struct {
	Development bool
	Format      string // "TEXT" or "JSON"
	FilePath    string
}

var (
	baseMu     sync.RWMutex
	baseLogger = zap.NewNop()
)

// Setup builds the base Logger that new Contexts start from.
func Setup(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if strings.ToUpper(cfg.Format) == "TEXT" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		zc.Encoding = "json"
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if len(cfg.FilePath) > 0 {
		zc.OutputPaths = append(zc.OutputPaths, cfg.FilePath)
	}

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}

	SetBase(l)
	return l, nil
}

// SetBase replaces the base Logger.
func SetBase(l *zap.Logger) {
	baseMu.Lock()
	defer baseMu.Unlock()
	baseLogger = l
}

func newLogger(ctx context.Context) *zap.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return baseLogger
}

// ContextWithConfig sets up the base Logger and returns a Context carrying it
// with a new request ID.
func ContextWithConfig(ctx context.Context, cfg Config) (context.Context, error) {
	if _, err := Setup(cfg); err != nil {
		return ctx, err
	}

	return ContextWithRequestID(ctx, ""), nil
}

// Verbose adds a debug level entry to the log.
func Verbose(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx).Debug(fmt.Sprintf(format, values...))
}

// Info adds an info level entry to the log.
func Info(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx).Info(fmt.Sprintf(format, values...))
}

// Warn adds a warning level entry to the log.
func Warn(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx).Warn(fmt.Sprintf(format, values...))
}

// Error adds an error level entry to the log.
func Error(ctx context.Context, format string, values ...interface{}) {
	logDepth(ctx).Error(fmt.Sprintf(format, values...))
}

// Fatal logs at error level and exits the process.
func Fatal(ctx context.Context, format string, values ...interface{}) {
	l := logDepth(ctx)
	l.Error(fmt.Sprintf(format, values...))
	l.Sync()
	os.Exit(1)
}

// logDepth skips the helper frame so the caller field points at the caller
// of Info/Warn/Error.
func logDepth(ctx context.Context) *zap.Logger {
	return NewLoggerFromContext(ctx).WithOptions(zap.AddCallerSkip(1))
}
