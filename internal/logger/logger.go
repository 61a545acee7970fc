// Package logger writes pipeline diagnostics for the cortexdocs CLI.
// Debug, Info and stage headers only appear with --verbose. Warnings
// and errors are always written, so per-document failures stay visible
// on a quiet run.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

// quiet reports whether lvl is suppressed outside verbose mode.
func (l level) quiet() bool {
	return l == levelDebug || l == levelInfo
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose toggles verbose output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose output is on.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(lvl level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if lvl.quiet() && !verbose {
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", lvl, fmt.Sprintf(format, args...))
}

func header(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", fmt.Sprintf(format, args...))
}

// Debug logs a per-document decision.
func Debug(format string, args ...any) { logf(levelDebug, format, args...) }

// Info logs progress.
func Info(format string, args ...any) { logf(levelInfo, format, args...) }

// Warn logs a recoverable failure, such as one document failing a stage.
func Warn(format string, args ...any) { logf(levelWarn, format, args...) }

// Error logs a failure that aborts the current operation.
func Error(format string, args ...any) { logf(levelError, format, args...) }

// Section prints a header line.
func Section(name string) { header("%s", name) }

// Stage prints a stage header with the number of selected documents.
func Stage(name string, selected int) {
	if selected == 1 {
		header("%s (1 document)", name)
		return
	}
	header("%s (%d documents)", name, selected)
}
