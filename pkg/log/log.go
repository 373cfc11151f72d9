package log

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the process logger is built
type Config struct {
	Level  string
	Debug  bool
	Output string // file path, "stderr" or "stdout"
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

func newLoggerConfig(c Config) (loggerConfig zap.Config) {
	if c.Debug {
		loggerConfig = zap.NewDevelopmentConfig()
	} else {
		loggerConfig = zap.NewProductionConfig()
		loggerConfig.DisableCaller = true
	}

	output := c.Output
	if output == "" {
		output = "stderr"
	}
	loggerConfig.OutputPaths = []string{output}
	loggerConfig.ErrorOutputPaths = []string{"stderr"}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	loggerConfig.Level = zap.NewAtomicLevelAt(parseLevel(c.Level))
	return
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Bootstrap builds the process logger and makes it available through L
func Bootstrap(c Config) (*zap.Logger, error) {
	l, err := newLoggerConfig(c).Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	return l, nil
}

// L returns the process logger, a no-op logger until Bootstrap succeeds
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Named returns a child of the process logger
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}
