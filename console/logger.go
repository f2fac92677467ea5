package console

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger writes leveled lines to a file. Terminal output is left to the CLI.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	logger *log.Logger
	debug  bool
}

// NewLogger appends to the log file at path, creating parent directories.
func NewLogger(path string, debug bool) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &Logger{file: file, logger: log.New(file, "", log.LstdFlags), debug: debug}, nil
}

// NewWriterLogger logs to w; handy for tests and --debug on stderr.
func NewWriterLogger(w io.Writer, debug bool) *Logger {
	return &Logger{logger: log.New(w, "", log.LstdFlags), debug: debug}
}

// NopLogger discards everything.
func NopLogger() *Logger { return NewWriterLogger(io.Discard, false) }

func (l *Logger) print(prefix, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetPrefix(prefix)
	l.logger.Printf(format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.debug {
		return
	}
	l.print("DEBUG: ", format, args...)
}

func (l *Logger) Infof(format string, args ...any)  { l.print("INFO: ", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.print("WARN: ", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.print("ERROR: ", format, args...) }

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
