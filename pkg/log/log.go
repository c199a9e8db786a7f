package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Color codes
const (
	reset      = "\033[0m"
	dim        = "\033[2m"
	green      = "\033[32m"
	yellow     = "\033[33m"
	blue       = "\033[34m"
	magenta    = "\033[35m"
	cyan       = "\033[36m"
	white      = "\033[37m"
	boldRed    = "\033[1;31m"
	boldGreen  = "\033[1;32m"
	boldYellow = "\033[1;33m"
)

// Emojis for different log types
const (
	infoEmoji     = "ℹ️ "
	successEmoji  = "✅ "
	errorEmoji    = "❌ "
	warnEmoji     = "⚠️ "
	stepEmoji     = "👉 "
	debugEmoji    = "🔍 "
	loadingEmoji  = "⏳ "
	prEmoji       = "🔄 "
	gitEmoji      = "📦 "
	branchEmoji   = "🌿 "
	diffEmoji     = "📝 "
	scheduleEmoji = "⏰ "
)

// Logger prints human readable, emoji prefixed lines to the console and can
// mirror every line as a structured JSON entry to a file.
type Logger struct {
	debug     bool
	component string
	sink      *sink
}

// sink is shared by a logger and everything derived from it with Named.
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	mirror *zap.Logger
}

// New creates a new logger instance writing to stdout
func New(debug bool) *Logger {
	return &Logger{
		debug: debug,
		sink:  &sink{out: os.Stdout},
	}
}

// SetOutput redirects console output. Used by tests and the interactive UI.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.out = w
}

// MirrorTo starts writing JSON entries for every log line to path.
func (l *Logger) MirrorTo(path string) error {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	if l.debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	z, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build log mirror: %w", err)
	}

	l.sink.mu.Lock()
	l.sink.mirror = z
	l.sink.mu.Unlock()
	return nil
}

// Named returns a logger sharing output and mirror, tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	c := *l
	c.component = component
	return &c
}

// Sync flushes the JSON mirror, if any.
func (l *Logger) Sync() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.mirror != nil {
		_ = l.sink.mirror.Sync()
	}
}

// formatMessage adds padding and wraps long lines
func formatMessage(msg string) string {
	width := 80
	lines := strings.Split(msg, "\n")
	var formatted []string

	for _, line := range lines {
		if len(line) <= width {
			formatted = append(formatted, line)
			continue
		}

		words := strings.Fields(line)
		current := ""
		for _, word := range words {
			if len(current)+len(word)+1 > width {
				formatted = append(formatted, current)
				current = word
			} else {
				if current == "" {
					current = word
				} else {
					current += " " + word
				}
			}
		}
		if current != "" {
			formatted = append(formatted, current)
		}
	}

	return strings.Join(formatted, "\n")
}

func (l *Logger) emit(color, emoji string, level zapcore.Level, kind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	fmt.Fprintf(l.sink.out, "%s%s%s%s\n", color, emoji, formatMessage(msg), reset)

	if l.sink.mirror == nil {
		return
	}
	if ce := l.sink.mirror.Check(level, msg); ce != nil {
		fields := []zap.Field{zap.String("kind", kind)}
		if l.component != "" {
			fields = append(fields, zap.String("component", l.component))
		}
		ce.Write(fields...)
	}
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(blue, infoEmoji, zapcore.InfoLevel, "info", format, args...)
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	l.emit(boldGreen, successEmoji, zapcore.InfoLevel, "success", format, args...)
}

// Error prints an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(boldRed, errorEmoji, zapcore.ErrorLevel, "error", format, args...)
}

// Warning prints a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.emit(boldYellow, warnEmoji, zapcore.WarnLevel, "warning", format, args...)
}

// Step prints a step message
func (l *Logger) Step(format string, args ...interface{}) {
	l.emit(cyan, stepEmoji, zapcore.InfoLevel, "step", format, args...)
}

// Loading prints a message for a long running operation that is starting
func (l *Logger) Loading(format string, args ...interface{}) {
	l.emit(cyan, loadingEmoji, zapcore.InfoLevel, "loading", format, args...)
}

// Debug prints a debug message if debug is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit(dim, debugEmoji, zapcore.DebugLevel, "debug", format, args...)
}

// PR prints a PR-related message
func (l *Logger) PR(format string, args ...interface{}) {
	l.emit(magenta, prEmoji, zapcore.InfoLevel, "pr", format, args...)
}

// Git prints a git-related message
func (l *Logger) Git(format string, args ...interface{}) {
	l.emit(white, gitEmoji, zapcore.InfoLevel, "git", format, args...)
}

// Branch prints a branch-related message
func (l *Logger) Branch(format string, args ...interface{}) {
	l.emit(green, branchEmoji, zapcore.InfoLevel, "branch", format, args...)
}

// Diff prints a diff-related message
func (l *Logger) Diff(format string, args ...interface{}) {
	l.emit(yellow, diffEmoji, zapcore.InfoLevel, "diff", format, args...)
}

// Schedule prints a scheduler-related message
func (l *Logger) Schedule(format string, args ...interface{}) {
	l.emit(cyan, scheduleEmoji, zapcore.InfoLevel, "schedule", format, args...)
}

// IsDebug returns whether debug logging is enabled
func (l *Logger) IsDebug() bool {
	return l.debug
}
