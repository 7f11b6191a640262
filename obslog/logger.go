// Package obslog builds the application's structured logger: a
// log/slog.Logger (the ambient logging style the teacher's app package
// configures by default) optionally backed by a rotating file writer.
//
// The functional-option construction and the rotation knobs (max size,
// backups, age, compress) are grounded in arkd0ng-go-utils/logging's
// Logger; the JSON-handler-over-os.Stdout default and slog.Logger as the
// framework's actual logging type come from goflash-flash/app.New.
package obslog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is the minimum level logged; defaults to slog.LevelInfo.
	Level slog.Level
	// AddSource adds file:line to each record.
	AddSource bool
	// FilePath enables rotating file output alongside stdout when non-empty.
	FilePath string
	// MaxSizeMB is the per-file size cap before rotation (default 100).
	MaxSizeMB int
	// MaxBackups bounds retained rotated files (default 7).
	MaxBackups int
	// MaxAgeDays bounds retention by age (default 30).
	MaxAgeDays int
	// Compress gzips rotated files.
	Compress bool
	// JSON selects slog.NewJSONHandler over slog.NewTextHandler. Defaults
	// to true, matching the teacher's default handler.
	JSON *bool
}

// New builds a *slog.Logger per opts. With no FilePath, it logs JSON to
// stdout only, matching goflash-flash/app.New's default handler.
func New(opts Options) *slog.Logger {
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if opts.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    firstPositive(opts.MaxSizeMB, 100),
			MaxBackups: firstPositive(opts.MaxBackups, 7),
			MaxAge:     firstPositive(opts.MaxAgeDays, 30),
			Compress:   opts.Compress,
		})
	}

	var w io.Writer = io.MultiWriter(writers...)
	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}

	useJSON := opts.JSON == nil || *opts.JSON
	var handler slog.Handler
	if useJSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

func firstPositive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
