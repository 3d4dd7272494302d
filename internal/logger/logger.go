// Package logger provides leveled logging for docrag.
// Debug and Info are printed only in verbose mode; Warn and Error always are.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	logFile *os.File
)

// SetVerbose enables or disables Debug and Info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer used for log lines. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// OpenFile additionally appends every log line to path.
func OpenFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = file
	output = io.MultiWriter(os.Stderr, logFile)
	return nil
}

// Close closes the log file, if any, and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	output = os.Stderr
	err := logFile.Close()
	logFile = nil
	return err
}

func write(level string, gated bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if gated && !verbose {
		return
	}
	fmt.Fprintf(output, "%s [%s] %s\n", time.Now().Format("15:04:05"), level, fmt.Sprintf(format, args...))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { write("DEBUG", true, format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { write("INFO", true, format, args...) }

// Warn prints a warning message.
func Warn(format string, args ...any) { write("WARN", false, format, args...) }

// Error prints an error message.
func Error(format string, args ...any) { write("ERROR", false, format, args...) }
