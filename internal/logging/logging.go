// Package logging wraps gookit/slog with the JSON console format used by every
// command, plus optional file output.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Fields carries structured key/values for a single log line.
type Fields map[string]any

// Log is the process-wide logger. It works at info level before Init is called.
var Log = NewLogger("info")

// timeFormat matches the timestamp layout of the log files the bot has always written.
const timeFormat = "2006-01-02T15:04:05"

// Init rebuilds Log for the given level and, when file is non-empty, mirrors
// every line into that file.
func Init(level, file string) error {
	lg := NewLogger(level)
	if file != "" {
		fh, err := handler.NewFileHandler(file, handler.WithLogLevels(levelsUpTo(level)))
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", file, err)
		}
		fh.SetFormatter(newFormatter())
		lg.AddHandler(fh)
	}
	Log = lg
	return nil
}

// NewLogger creates a console logger writing JSON lines to stderr, keeping
// stdout for the run reports.
func NewLogger(level string) *slog.Logger {
	return NewWriterLogger(os.Stderr, level)
}

// NewWriterLogger creates a logger writing JSON lines to w.
func NewWriterLogger(w io.Writer, level string) *slog.Logger {
	h := handler.NewIOWriterHandler(w, levelsUpTo(level))
	h.SetFormatter(newFormatter())
	return slog.NewWithHandlers(h)
}

// NewFileLogger creates a logger that only writes to file.
func NewFileLogger(file, level string) (*slog.Logger, error) {
	fh, err := handler.NewFileHandler(file, handler.WithLogLevels(levelsUpTo(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", file, err)
	}
	fh.SetFormatter(newFormatter())
	return slog.NewWithHandlers(fh), nil
}

// Close flushes and closes the global logger's handlers.
func Close() {
	_ = Log.Close()
}

func newFormatter() *slog.JSONFormatter {
	return slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "datetime",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
		}
		f.TimeFormat = timeFormat
	})
}

func levelsUpTo(level string) slog.Levels {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	maxLevel := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= maxLevel {
			levels = append(levels, lv)
		}
	}
	return levels
}

func InfoWithFields(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Info(msg)
}

func WarnWithFields(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Warn(msg)
}

func ErrorWithFields(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Error(msg)
}

func DebugWithFields(msg string, fields Fields) {
	Log.WithFields(slog.M(fields)).Debug(msg)
}
