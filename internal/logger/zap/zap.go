// Package zap adapts go.uber.org/zap to the logger.Logger facade, with
// file rotation handled by gopkg.in/natefinch/lumberjack.v2.
package zap

import (
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feng-zhe/zhechord/internal/logger"
)

// Config controls how the rotating file sink and console sink are built.
type Config struct {
	// Level is the minimum level emitted: "debug", "info", "warn", "error".
	Level string
	// FilePath, if non-empty, enables a lumberjack-rotated file sink
	// alongside stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a logger.Logger backed by a *zap.Logger. An empty Config
// produces a stderr-only, info-level logger.
func New(cfg Config) (logger.Logger, error) {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller())
	return &adapter{zl: zl}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// adapter wraps *zap.Logger to satisfy logger.Logger.
type adapter struct {
	zl *zap.Logger
}

func toZapFields(fields []logger.Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

func (a *adapter) Debug(msg string, fields ...logger.Field) { a.zl.Debug(msg, toZapFields(fields)...) }
func (a *adapter) Info(msg string, fields ...logger.Field)  { a.zl.Info(msg, toZapFields(fields)...) }
func (a *adapter) Warn(msg string, fields ...logger.Field)  { a.zl.Warn(msg, toZapFields(fields)...) }
func (a *adapter) Error(msg string, fields ...logger.Field) { a.zl.Error(msg, toZapFields(fields)...) }

func (a *adapter) Named(name string) logger.Logger {
	return &adapter{zl: a.zl.Named(name)}
}
