// Package logging builds the daemon's logrus instance: structured JSON
// to stderr by default, or a lumberjack-rotated file when a path is
// configured.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cctalk/cctalk-host/internal/config"
)

// New builds a logrus.Logger from cfg. A malformed level falls back to
// info rather than failing startup over a typo in a config file.
func New(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	if cfg.FilePath == "" {
		logger.SetOutput(os.Stderr)
		return logger
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	if level >= logrus.DebugLevel {
		logger.SetOutput(io.MultiWriter(os.Stderr, rotated))
	} else {
		logger.SetOutput(rotated)
	}
	return logger
}

// Reconfigure applies a newly loaded LogConfig to an existing logger in
// place, so a config hot-reload (internal/config.Watcher) can pick up a
// changed level or rotation policy without restarting the daemon.
func Reconfigure(logger *logrus.Logger, cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if cfg.FilePath == "" {
		logger.SetOutput(os.Stderr)
		return nil
	}
	rotated := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	if level >= logrus.DebugLevel {
		logger.SetOutput(io.MultiWriter(os.Stderr, rotated))
	} else {
		logger.SetOutput(rotated)
	}
	return nil
}
