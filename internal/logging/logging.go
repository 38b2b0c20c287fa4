package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

// Options configures the process-wide logger.
type Options struct {
	// Level overrides the level derived from DEBUG / LOG_LEVEL when non-empty.
	Level string
	// File enables an additional rotating log file when non-empty.
	File string
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// Console disables colored console output when false.
	Console bool
}

var (
	mu           sync.RWMutex
	logger       zerolog.Logger
	currentLevel LogLevel
	fileWriter   *lumberjack.Logger
	initOnce     sync.Once
)

// initDefault sets up a console logger using the environment on first use.
func initDefault() {
	initOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		currentLevel = ParseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
		logger = newLogger(consoleWriter(true), currentLevel)
	})
}

// ParseLevel resolves the effective level. A truthy debug flag wins over level.
func ParseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Configure replaces the process-wide logger. It may be called more than once;
// a previously opened log file is closed.
func Configure(opts Options) error {
	initDefault()

	level := ParseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	if opts.Level != "" {
		level = ParseLevel("", opts.Level)
	}

	writers := []io.Writer{consoleWriter(opts.Console)}

	var fw *lumberjack.Logger
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		_ = f.Close()

		fw = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		}
		writers = append(writers, fw)
	}

	mu.Lock()
	defer mu.Unlock()

	if fileWriter != nil {
		_ = fileWriter.Close()
	}
	fileWriter = fw
	currentLevel = level
	logger = newLogger(zerolog.MultiLevelWriter(writers...), level)
	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// Rotate starts a new log file, keeping the old one as a backup. It does
// nothing when no log file is configured.
func Rotate() error {
	mu.RLock()
	fw := fileWriter
	mu.RUnlock()
	if fw == nil {
		return nil
	}
	return fw.Rotate()
}

func consoleWriter(color bool) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    !color,
	}
}

func newLogger(w io.Writer, level LogLevel) zerolog.Logger {
	return zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func current() zerolog.Logger {
	initDefault()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Logger returns the underlying zerolog logger for callers that want structured fields.
func Logger() zerolog.Logger {
	return current()
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initDefault()
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	l := current()
	l.Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	l := current()
	l.Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	l := current()
	l.Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	l := current()
	l.Error().Msgf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	l := current()
	l.WithLevel(zerolog.FatalLevel).Msgf(format, args...)
	_ = Close()
	exit(1)
}

// exit is swapped in tests.
var exit = func(code int) {
	time.Sleep(10 * time.Millisecond)
	os.Exit(code)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
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
		return fmt.Sprintf("unknown(%d)", l)
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
