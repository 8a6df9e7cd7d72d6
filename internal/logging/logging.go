package logging

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Logger provides quiet-aware diagnostic logging. Everything goes to
// stderr so the manifest destination and stdout stay clean.
type Logger struct {
	quiet bool
	out   io.Writer
}

// NewLogger creates a new logger
func NewLogger(quiet bool) *Logger {
	return &Logger{quiet: quiet, out: os.Stderr}
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if !l.quiet {
		fmt.Fprintf(l.out, format+"\n", args...)
	}
}

// Warn logs a warning message, shown even in quiet mode
func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(l.out, "WARNING: "+format+"\n", args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.out, "ERROR: "+format+"\n", args...)
}

// PrintSummary prints the run summary. Errors are shown even in quiet
// mode so a completed-with-anomalies run is never mistaken for clean.
func (l *Logger) PrintSummary(files int, bytes int64, anomalies, failures int, duration time.Duration) {
	if l.quiet && anomalies == 0 && failures == 0 {
		return
	}

	fmt.Fprintln(l.out)
	fmt.Fprintln(l.out, "=== Summary ===")
	fmt.Fprintf(l.out, "Hashed: %d files (%s)\n", files, formatBytes(bytes))
	if anomalies > 0 {
		fmt.Fprintf(l.out, "Anomalies: %d\n", anomalies)
	}
	if failures > 0 {
		fmt.Fprintf(l.out, "Hash failures: %d\n", failures)
	}
	fmt.Fprintf(l.out, "Duration: %s\n", duration.Round(time.Millisecond))
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
