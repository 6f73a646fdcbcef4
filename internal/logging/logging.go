// Package logging builds the application's zap logger from configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramonehamilton/deckforge/internal/config"
)

// Handle controls a logger built by New.
type Handle struct {
	logger  *zap.Logger
	level   zap.AtomicLevel
	restore func()
}

// New builds a logger for cfg and installs it as the global logger. The
// debug level switches to the development config.
func New(cfg config.LogConfig) (*zap.Logger, *Handle, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format != "" {
		zc.Encoding = cfg.Format
	}
	if zc.Encoding == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, &Handle{
		logger:  logger,
		level:   zc.Level,
		restore: zap.ReplaceGlobals(logger),
	}, nil
}

// SetLevel changes the minimum level of the logger while it runs.
func (h *Handle) SetLevel(level string) error {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	h.level.SetLevel(l)
	return nil
}

// Close flushes the logger and restores the previous globals.
func (h *Handle) Close() {
	_ = h.logger.Sync()
	h.restore()
}
