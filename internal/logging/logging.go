// Package logging builds the zap loggers used across the process. Output is
// a compact console layout: HH:MM:SS, single-letter level, caller file.
// While the terminal UI owns the screen, logs go to a file instead of
// stdout.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func consoleEncoder() zapcore.Encoder {
	config := zap.NewDevelopmentEncoderConfig()

	config.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05"))
	}

	config.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		switch level {
		case zapcore.DebugLevel:
			enc.AppendString("D")
		case zapcore.InfoLevel:
			enc.AppendString("I")
		case zapcore.WarnLevel:
			enc.AppendString("W")
		case zapcore.ErrorLevel:
			enc.AppendString("E")
		default:
			enc.AppendString("?")
		}
	}

	config.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		file := caller.File
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		file = strings.TrimSuffix(file, ".go")
		enc.AppendString(file)
	}

	return zapcore.NewConsoleEncoder(config)
}

// New returns a stderr logger at the given level.
func New(level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(consoleEncoder(), zapcore.AddSync(os.Stderr), level)
	return zap.New(core, zap.AddCaller())
}

// NewFile returns a logger appending to path and a close func. The terminal
// UI uses this so log output never races the rendered screen.
func NewFile(path string, level zapcore.Level) (*zap.Logger, func() error, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	core := zapcore.NewCore(consoleEncoder(), zapcore.AddSync(file), level)
	logger := zap.New(core, zap.AddCaller())
	closeFn := func() error {
		_ = logger.Sync()
		return file.Close()
	}
	return logger, closeFn, nil
}
