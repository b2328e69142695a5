package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log records go
type Options struct {
	Level slog.Level

	// File, when set, receives a copy of every record and is rotated by size
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Console defaults to os.Stderr
	Console io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a text logger writing to the console and, if configured, to a
// rotating log file. The returned closer flushes and closes the file.
func New(opts Options) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var out io.Writer = console
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: opts.Level,
	})
	return slog.New(handler), closer
}

// Setup installs the logger from New as the slog default
func Setup(opts Options) io.Closer {
	logger, closer := New(opts)
	slog.SetDefault(logger)
	return closer
}

// VerboseLevel maps the -v count to a slog level. Zero keeps fallback.
func VerboseLevel(verbose int, fallback slog.Level) slog.Level {
	if verbose > 0 {
		return slog.LevelDebug
	}
	return fallback
}
