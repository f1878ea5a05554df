// Package logging wraps the standard library logger with a rotating
// file writer, matching the teacher's declared lumberjack-backed logging
// setup.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a thin wrapper over *log.Logger, letting callers choose a
// severity without hand-rolling prefixes at every call site.
type Logger struct {
	*log.Logger
}

// New builds a Logger that writes to both the rotating file at path and
// stderr. If path is empty, only stderr is used (convenient for
// cmd/demo and tests, which have no durable log file to rotate).
func New(path string, maxSizeMB, maxBackups int) *Logger {
	var w io.Writer = os.Stderr
	if path != "" {
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, rotating)
	}
	return &Logger{Logger: log.New(w, "", log.LstdFlags)}
}

func (l *Logger) Info(format string, args ...any) {
	l.Printf("INFO "+format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.Printf("WARN "+format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.Printf("ERROR "+format, args...)
}
