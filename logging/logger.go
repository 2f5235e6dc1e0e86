package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const dateFormat = "2006-01-02 15:04:05.000 -07:00"

// Log levels
const (
	LevelInfo  = "[\033[94mINFO\033[0m] "
	LevelWarn  = "[\033[93mWARN\033[0m] "
	LevelError = "[\033[91mERROR\033[0m] "
)

// Logger wraps the standard library logger with levels, timestamps and caller info
type Logger struct {
	*log.Logger
	component string
}

// New returns a logger writing to stdout
func New(component string) *Logger {
	return NewWithWriter(component, os.Stdout)
}

// NewWithWriter returns a logger writing to w
func NewWithWriter(component string, w io.Writer) *Logger {
	return &Logger{
		Logger:    log.New(w, "", 0),
		component: component,
	}
}

// Discard returns a logger that drops everything; handy in tests
func Discard() *Logger {
	return NewWithWriter("", io.Discard)
}

// With returns a copy of the logger for another component, sharing the output
func (l *Logger) With(component string) *Logger {
	return &Logger{
		Logger:    l.Logger,
		component: component,
	}
}

// getCallerInfo returns the file name and line number of the caller
func (l *Logger) getCallerInfo(skipFrames int) string {
	_, file, line, ok := runtime.Caller(skipFrames)
	if !ok {
		return "???:0"
	}

	parts := strings.Split(file, "/")
	file = parts[len(parts)-1]

	return file + ":" + strconv.Itoa(line)
}

func (l *Logger) formatLogEntry(level, caller, format string, args ...any) string {
	timestamp := time.Now().Format(dateFormat)
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		message = l.component + ": " + message
	}
	return fmt.Sprintf("[%s] %s %s: %s", timestamp, level, caller, message)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...any) {
	l.Println(l.formatLogEntry(LevelInfo, l.getCallerInfo(2), format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	l.Println(l.formatLogEntry(LevelWarn, l.getCallerInfo(2), format, args...))
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.Println(l.formatLogEntry(LevelError, l.getCallerInfo(2), format, args...))
}
