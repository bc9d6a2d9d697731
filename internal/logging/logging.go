// Package logging builds the process-wide structured logger from
// configuration: log/slog handlers backed by lumberjack for file
// rotation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction. Field names mirror the
// "logging" section of the gateway's configuration file.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" | "text"
	Output     string `mapstructure:"output"` // "stdout" | "stderr" | "file"
	Filename   string `mapstructure:"filename"`
	MaxBytes   int    `mapstructure:"max_bytes"`    // megabytes, lumberjack.MaxSize
	BackupCount int   `mapstructure:"backup_count"` // lumberjack.MaxBackups
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// New builds a *slog.Logger from cfg. Unknown/empty values fall back to
// sane defaults (info level, stdout, text format) rather than erroring,
// since a misconfigured logger should never prevent the service from
// starting.
func New(cfg Config) *slog.Logger {
	handler := newHandler(cfg)
	return slog.New(handler)
}

func newHandler(cfg Config) slog.Handler {
	writer := writerFor(cfg)
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: ParseLevel(cfg.Level) == slog.LevelDebug,
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(writer, opts)
	}
	return slog.NewTextHandler(writer, opts)
}

// ParseLevel converts a configuration string into an slog.Level,
// defaulting to Info for unrecognized or empty values.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func writerFor(cfg Config) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "file":
		if cfg.Filename == "" {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxBytes,
			MaxBackups: cfg.BackupCount,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}
