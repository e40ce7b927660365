// Package logger builds the zerolog loggers shared by a workspace session.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// Build collects the logger sinks before Make opens them.
type Build struct {
	writer io.Writer
	path   string
	level  string
}

// Handle is a constructed logger plus the file it owns, if any.
type Handle struct {
	Logger  zerolog.Logger
	LogFile *os.File
}

// New starts a builder writing to stderr at info level.
func New() *Build {
	return &Build{writer: os.Stderr, level: "info"}
}

// FromPath appends log lines to a file instead of the writer.
func (b *Build) FromPath(path string) *Build {
	b.path = strings.TrimSpace(path)
	return b
}

// FromWriter sets the writer used when no path is configured.
func (b *Build) FromWriter(w io.Writer) *Build {
	if w != nil {
		b.writer = w
	}
	return b
}

// WithLevel sets the minimum level by name ("debug", "warn", ...).
func (b *Build) WithLevel(level string) *Build {
	b.level = level
	return b
}

// Make opens sinks and constructs the logger.
func (b *Build) Make() (*Handle, error) {
	level, err := ParseLevel(b.level)
	if err != nil {
		return nil, err
	}

	handle := &Handle{}
	writer := b.writer
	if b.path != "" {
		handle.LogFile, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("logger: open %s: %w", b.path, err)
		}
		writer = zerolog.SyncWriter(handle.LogFile)
	}
	handle.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return handle, nil
}

// Close releases the log file.
func (h *Handle) Close() error {
	if h == nil || h.LogFile == nil {
		return nil
	}
	return h.LogFile.Close()
}

// ParseLevel maps a level name onto zerolog. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logger: level %q: %w", name, err)
	}
	return level, nil
}

// Nop returns a disabled logger, the default for every component.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
