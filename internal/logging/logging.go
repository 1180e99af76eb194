// Package logging builds the zerolog logger shared by the CLI and server.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/config"
)

// New returns a logger writing to out (os.Stderr when nil) and, when
// cfg.File is set, appending JSON lines to that file as well. The returned
// close func releases the file handle and is never nil.
func New(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	var writer io.Writer = out
	if cfg.Format != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    !isTerminal(out),
		}
	}

	closeFn := noop
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return zerolog.Nop(), noop, err
		}
		writer = zerolog.MultiLevelWriter(writer, f)
		closeFn = f.Close
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

// ParseLevel maps a config level to zerolog; empty means info.
func ParseLevel(value string) (zerolog.Level, error) {
	if value == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(value)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return f, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
