// Package log provides context-aware diagnostic logging for crashaudit.
// All diagnostics go to stderr; primary data output goes through the
// output package.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

type ctxKey struct{}

// Logger provides diagnostic output with verbose and quiet gating.
type Logger struct {
	out     io.Writer
	verbose bool
	quiet   bool
}

// New creates a new logger. quiet suppresses all output, including
// verbose command echoes.
func New(out io.Writer, verbose, quiet bool) *Logger {
	return &Logger{out: out, verbose: verbose, quiet: quiet}
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{out: io.Discard, quiet: true}
}

// Printf writes formatted diagnostic output unless quiet.
func (l *Logger) Printf(format string, args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}

// Println writes a line of diagnostic output unless quiet.
func (l *Logger) Println(args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintln(l.out, args...)
}

// Debug writes a message with key=value pairs.
// Only prints when verbose mode is enabled. Incomplete trailing pairs
// are dropped.
func (l *Logger) Debug(msg string, kv ...any) {
	if !l.verbose || l.quiet {
		return
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintln(l.out, sb.String())
}

// Command logs an external command execution and returns a completion
// callback that records the command's duration. Only prints when verbose
// mode is enabled.
func (l *Logger) Command(dir, name string, args ...string) func(time.Duration) {
	if !l.verbose || l.quiet {
		return func(time.Duration) {}
	}
	if dir != "" {
		fmt.Fprintf(l.out, "[%s] $ %s %s", dir, name, strings.Join(args, " "))
	} else {
		fmt.Fprintf(l.out, "$ %s %s", name, strings.Join(args, " "))
	}
	return func(d time.Duration) {
		fmt.Fprintf(l.out, " (%s)\n", d)
	}
}

// IsVerbose returns true if verbose mode is enabled and not quieted.
func (l *Logger) IsVerbose() bool {
	return l.verbose && !l.quiet
}

// Writer returns the underlying writer.
func (l *Logger) Writer() io.Writer {
	return l.out
}
