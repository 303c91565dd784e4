package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var DebugMode bool

var (
	mu    sync.RWMutex
	sugar = zap.NewNop().Sugar()
)

func Init() {
	if os.Getenv("DEBUG") == "true" {
		DebugMode = true
	}
	// By default, discard all logs to prevent TUI corruption
	SetOutput(io.Discard)
}

// SetOutput rebuilds the logger so that entries are written to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	sugar = build(w)
}

func build(w io.Writer) *zap.SugaredLogger {
	if w == io.Discard {
		return zap.NewNop().Sugar()
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zapcore.InfoLevel
	if DebugMode {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(format string, v ...interface{}) {
	if DebugMode {
		current().Debugf(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	current().Infof(format, v...)
}

func Warn(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Sync flushes buffered entries
func Sync() {
	_ = current().Sync()
}
