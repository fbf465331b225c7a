package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger writes human-readable logs to stderr, plus a rotated file when
// log_file is set. Only warnings and errors are shown unless debug is on.
func newLogger(cfg *Config, stderr io.Writer) (zerolog.Logger, func() error) {
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        stderr,
		TimeFormat: time.Kitchen,
		NoColor:    cfg.NoColor,
	}

	var rotator *lumberjack.Logger
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err == nil {
			rotator = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     30,
				Compress:   true,
				LocalTime:  true,
			}
			output = zerolog.MultiLevelWriter(output, rotator)
		}
	}

	level := zerolog.WarnLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	if rotator == nil {
		return logger, func() error { return nil }
	}
	return logger, rotator.Close
}
