// Package logging provides component loggers for seek with file rotation,
// optional console output and a live feed for the TUI log panel.
//
//	if err := logging.Init(logging.FromConfig(cfg.Logging)); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("session")
//	logger.Info("session started", "id", id, "strategy", "walk")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/seek/pkg/seek/config"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// charm maps a Level onto the charmbracelet/log level.
func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses config.DefaultLogPath().
	Path string

	// Rotation controls size and age based rotation of the log file.
	Rotation RotationConfig

	// Components maps component names to their log levels, overriding Level
	// for loggers such as "walker" or "store".
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level. Empty disables it.
	ConsoleLevel string

	// TUIMode suppresses console output and keeps recent entries in a ring
	// buffer for the log panel.
	TUIMode bool
}

// FromConfig converts the logging section of the application config.
// An unparseable rotation size falls back to the default.
func FromConfig(c config.LoggingConfig) Config {
	rot := RotationConfig{
		MaxAge:     c.Rotation.MaxAge,
		MaxBackups: c.Rotation.MaxBackups,
		Daily:      c.Rotation.Daily,
	}
	if c.Rotation.MaxSize != "" {
		if n, err := humanize.ParseBytes(c.Rotation.MaxSize); err == nil {
			rot.MaxSize = int64(n)
		}
	}
	return Config{
		Level:      c.Level,
		Path:       c.Path,
		Rotation:   rot,
		Components: c.Components,
	}
}

// LogEntry is a single log line delivered to subscribers.
type LogEntry struct {
	// Time is when the line was logged.
	Time time.Time

	// Level is the severity of the line.
	Level Level

	// Component names the logger that wrote the line.
	Component string

	// Message is the log message without its key/value pairs.
	Message string
}

// Logger wraps charmbracelet/log with a component name.
// Every line goes to the log file, and to stderr when console output is on.
type Logger struct {
	file      *log.Logger // io.Discard before Init
	console   *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// log writes to the file and console loggers, then feeds the TUI panel.
func (l *Logger) log(level Level, msg string, args ...interface{}) {
	emit(l.file, level, msg, args...)
	if l.console != nil {
		emit(l.console, level, msg, args...)
	}

	globalState.broadcast(LogEntry{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
	})
}

// emit writes one line to logger at level.
func emit(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a logger that adds the given key/value pairs to every line.
func (l *Logger) With(args ...interface{}) *Logger {
	child := &Logger{
		file:      l.file.With(args...),
		component: l.component,
	}
	if l.console != nil {
		child.console = l.console.With(args...)
	}
	return child
}

// state is the process-wide logging configuration.
type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger
	subscribers map[chan LogEntry]struct{}

	// Console output; never enabled in TUI mode.
	consoleEnabled bool
	consoleLevel   Level
	tuiMode        bool

	// Ring buffer behind the TUI log panel; nil outside TUI mode.
	logBuffer *LogBuffer
}

var globalState = &state{
	loggers:     make(map[string]*Logger),
	components:  make(map[string]Level),
	subscribers: make(map[chan LogEntry]struct{}),
}

// Init initializes the logging system. Loggers obtained before Init are
// silent and are rebuilt in place once Init succeeds.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.initialized && globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing existing writer: %w", err)
		}
		globalState.writer = nil
	}
	globalState.components = make(map[string]Level)

	// Default level
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	globalState.level = level

	// Per-component overrides
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		globalState.components[comp] = parsed
	}

	globalState.tuiMode = cfg.TUIMode
	globalState.consoleEnabled = false
	if cfg.ConsoleLevel != "" && !cfg.TUIMode {
		consoleLevel, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		globalState.consoleLevel = consoleLevel
		globalState.consoleEnabled = true
	}

	if cfg.TUIMode {
		globalState.logBuffer = NewLogBuffer(DefaultBufferSize)
	} else {
		globalState.logBuffer = nil
	}

	path := cfg.Path
	if path == "" {
		path = config.DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}
	globalState.writer = writer
	globalState.initialized = true

	// Rebuild loggers handed out earlier so callers keep their pointers.
	for component, logger := range globalState.loggers {
		*logger = *createLogger(component)
	}

	return nil
}

// Get returns the logger for a component, creating it on first use.
// A level set for the component in Config.Components wins over Config.Level.
// Loggers obtained before Init write nowhere.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	// Another caller may have created it between the locks.
	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger builds the logger for component from the current state.
// It must be called with globalState.mu held.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	if !globalState.initialized {
		return &Logger{
			file: log.NewWithOptions(io.Discard, log.Options{
				Level:  level.charm(),
				Prefix: component,
			}),
			component: component,
		}
	}

	logger := &Logger{
		file: log.NewWithOptions(globalState.writer, log.Options{
			Level:           level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
	}

	// Console lines carry a short clock instead of the full timestamp.
	if globalState.consoleEnabled && !globalState.tuiMode {
		logger.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           globalState.consoleLevel.charm(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file and ends all subscriptions.
// Existing loggers go back to being silent.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	for ch := range globalState.subscribers {
		close(ch)
		delete(globalState.subscribers, ch)
	}

	var err error
	if globalState.writer != nil {
		if cerr := globalState.writer.Close(); cerr != nil {
			err = fmt.Errorf("closing log writer: %w", cerr)
		}
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.components = make(map[string]Level)
	for component, logger := range globalState.loggers {
		*logger = *createLogger(component)
	}

	return err
}

// Subscribe returns a buffered channel of log entries. Entries are dropped
// when the channel is full.
func Subscribe() <-chan LogEntry {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	ch := make(chan LogEntry, 100)
	globalState.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription channel without closing it.
func Unsubscribe(ch <-chan LogEntry) {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	for subCh := range globalState.subscribers {
		if subCh == ch {
			delete(globalState.subscribers, subCh)
			return
		}
	}
}

// broadcast hands entry to the ring buffer and every subscriber. A full
// subscriber channel loses the entry.
func (s *state) broadcast(entry LogEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.logBuffer != nil {
		s.logBuffer.Add(entry)
	}

	for ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

// GetLogBuffer returns the TUI ring buffer, or nil outside TUI mode.
func GetLogBuffer() *LogBuffer {
	globalState.mu.RLock()
	defer globalState.mu.RUnlock()
	return globalState.logBuffer
}
