// Package logger is the process-wide logger. It writes human-readable lines
// to stderr and, when a log file is configured, JSON lines to that file.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	sugar   *zap.SugaredLogger
	logFile *os.File
)

// ParseLevel maps a config level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger sets up console output plus an optional log file.
// An empty filename logs to stderr only.
func InitLogger(filename string, level string) error {
	mu.Lock()
	defer mu.Unlock()

	lvl := zap.NewAtomicLevelAt(ParseLevel(level))

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), lvl),
	}

	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		closeFileLocked()
		logFile = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			lvl,
		))
	}

	if sugar != nil {
		_ = sugar.Sync()
	}
	sugar = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

// Use replaces the process logger. Tests pass zap.NewNop() or an observer.
func Use(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Close flushes buffered entries and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		_ = sugar.Sync()
	}
	closeFileLocked()
}

func closeFileLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
		if err != nil {
			l = zap.NewNop()
		}
		sugar = l.Sugar()
	}
	return sugar
}

func Debugf(format string, v ...interface{}) {
	get().Debugf(format, v...)
}

func Info(format string, v ...interface{}) {
	get().Infof(format, v...)
}

func Infof(format string, v ...interface{}) {
	Info(format, v...)
}

// Infow logs a message with structured key/value pairs.
func Infow(msg string, keysAndValues ...interface{}) {
	get().Infow(msg, keysAndValues...)
}

func Warn(format string, v ...interface{}) {
	get().Warnf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	Warn(format, v...)
}

// Warnw logs a warning with structured key/value pairs.
func Warnw(msg string, keysAndValues ...interface{}) {
	get().Warnw(msg, keysAndValues...)
}

func Error(format string, v ...interface{}) {
	get().Errorf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	Error(format, v...)
}
