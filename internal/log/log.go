// Package log is the leveled, categorised logger used across tmlight.
// Entries go to a writer (stderr or a file) and are also published on a
// broker so the pager can show them. Nothing is logged until one of the
// Init functions runs.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/tmlight/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Category groups related log messages.
type Category string

const (
	CatGrammar   Category = "grammar"   // grammar loading and include resolution
	CatRule      Category = "rule"      // rule compilation
	CatTokenizer Category = "tokenizer" // line tokenization
	CatRegex     Category = "regex"     // pattern translation and matching
	CatSelector  Category = "selector"  // scope selector parsing
	CatTheme     Category = "theme"     // theme loading and matching
	CatCache     Category = "cache"     // cache operations
	CatConfig    Category = "config"    // configuration loading/saving
	CatWatcher   Category = "watcher"   // file watcher events
	CatCLI       Category = "cli"       // command line
	CatUI        Category = "ui"        // pager rendering
)

// Field is one key=value pair of an entry.
type Field struct {
	Key   string
	Value any
}

// Entry is a single log record.
type Entry struct {
	Time     time.Time
	Level    Level
	Category Category
	Message  string
	Fields   []Field
}

// String formats the entry as one line without the trailing newline:
//
//	2025-12-06T10:45:00 [WARN] [grammar] message key=value key2=value2
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", e.Time.Format("2006-01-02T15:04:05"), e.Level, e.Category, e.Message)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

// Field returns the value of key, if present.
func (e Entry) Field(key string) (any, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// pairFields turns alternating key, value arguments into fields. An odd
// trailing key gets the value <missing>.
func pairFields(kv []any) []Field {
	if len(kv) == 0 {
		return nil
	}
	fields := make([]Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 < len(kv) {
			fields = append(fields, Field{Key: key, Value: kv[i+1]})
		} else {
			fields = append(fields, Field{Key: key, Value: "<missing>"})
		}
	}
	return fields
}

// Logger provides structured logging.
type Logger struct {
	mu       sync.Mutex
	closer   io.Closer
	writer   io.Writer
	enabled  bool
	minLevel Level
	broker   *pubsub.Broker[Entry]
}

var defaultLogger *Logger

func install(w io.Writer, closer io.Closer, minLevel Level) func() {
	l := &Logger{
		closer:   closer,
		writer:   w,
		enabled:  true,
		minLevel: minLevel,
		broker:   pubsub.NewBroker[Entry](),
	}
	defaultLogger = l
	return func() {
		l.broker.Close()
		if l.closer != nil {
			_ = l.closer.Close()
		}
	}
}

// Init logs to the file at path, appending. The returned function closes
// the file.
func Init(path string, minLevel Level) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path is the configured log_file
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return install(f, f, minLevel), nil
}

// InitWriter logs to w, usually stderr.
func InitWriter(w io.Writer, minLevel Level) {
	install(w, nil, minLevel)
}

// InitWithTeaLog uses tea.LogToFile for initialization. The pager uses it
// because stderr belongs to the terminal program.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	return install(f, f, LevelDebug), nil
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if l := defaultLogger; l != nil {
		l.mu.Lock()
		l.enabled = enabled
		l.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if l := defaultLogger; l != nil {
		l.mu.Lock()
		l.minLevel = level
		l.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warn level.
func Warn(cat Category, msg string, fields ...any) {
	log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	log(LevelError, cat, msg, fields...)
}

// ErrorErr logs err under the "error" key.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	all := make([]any, 0, len(fields)+2)
	all = append(all, "error", err)
	log(LevelError, cat, msg, append(all, fields...)...)
}

func log(level Level, cat Category, msg string, fields ...any) {
	l := defaultLogger
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel {
		return
	}

	entry := Entry{
		Time:     time.Now(),
		Level:    level,
		Category: cat,
		Message:  msg,
		Fields:   pairFields(fields),
	}
	if l.writer != nil {
		_, _ = io.WriteString(l.writer, entry.String()+"\n")
	}
	// Non-blocking
	l.broker.Publish(pubsub.CreatedEvent, entry)
}

// LogEvent is a pubsub event containing a log entry.
type LogEvent = pubsub.Event[Entry]

// LogListener wraps a continuous listener for log events.
type LogListener = pubsub.ContinuousListener[Entry]

// NewListener creates a listener for log entries that lives as long as
// ctx, or nil when logging is off.
func NewListener(ctx context.Context) *LogListener {
	if defaultLogger == nil {
		return nil
	}
	return pubsub.NewContinuousListener(ctx, Subscribe)
}

// Subscribe returns a channel of log entries, or nil when logging is off.
func Subscribe(ctx context.Context) <-chan LogEvent {
	if defaultLogger == nil {
		return nil
	}
	return defaultLogger.broker.Subscribe(ctx)
}
