// Package logging builds the structured logger shared by every component.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"venue-booking-backend/config"
)

// New returns a sugared zap logger. JSON output is meant for production,
// the console encoder for local runs.
func New(cfg config.LogConfig) (*zap.SugaredLogger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	if cfg.JSON {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = level
		zcfg.OutputPaths = []string{"stdout"}
		zcfg.ErrorOutputPaths = []string{"stderr"}
		l, err := zcfg.Build()
		if err != nil {
			return nil, err
		}
		return l.Sugar().Named("venued"), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level)
	return zap.New(core).Sugar().Named("venued"), nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func parseLevel(raw string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	}
	return zap.InfoLevel
}
