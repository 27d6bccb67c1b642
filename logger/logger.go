// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// ParseLevel maps a level name (debug, info, warn, error) to a LogLevel.
// Unknown names fall back to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type sink struct {
	debug, info, warn, err *log.Logger
}

type Logger struct {
	console  *sink
	file     *sink
	logFile  *os.File
	minLevel LogLevel
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.Mutex
)

// ensureInitialized creates a console logger if Init was never called.
// The minimum level comes from SPEEDRAW_LOG_LEVEL.
func ensureInitialized() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if defaultLogger != nil {
			return
		}
		defaultLogger = &Logger{minLevel: ParseLevel(os.Getenv("SPEEDRAW_LOG_LEVEL"))}
		defaultLogger.console = newSink(os.Stdout, isTerminal(os.Stdout))
	})
}

// Init initializes the logger with optional file and console output.
// If filename is empty, logs only to console. If console is false, logs only to file.
func Init(filename string, console bool) error {
	once.Do(func() {}) // keep ensureInitialized from replacing us
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.logFile != nil {
		defaultLogger.logFile.Close()
	}

	l := &Logger{minLevel: ParseLevel(os.Getenv("SPEEDRAW_LOG_LEVEL"))}

	if filename != "" {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.logFile = file
		l.file = newSink(file, false)
	}

	if console {
		l.console = newSink(os.Stdout, isTerminal(os.Stdout))
	}

	if l.console == nil && l.file == nil {
		return fmt.Errorf("no output destination specified")
	}

	defaultLogger = l
	return nil
}

// SetOutput sends all console output to w without colors. Used by tests and
// the CLI when stdout is reserved for command output.
func SetOutput(w io.Writer) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.console = newSink(w, false)
}

// SetLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.minLevel = level
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newSink(w io.Writer, color bool) *sink {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	prefix := func(c, label string) string {
		if !color {
			return label
		}
		return c + label + colorReset
	}
	return &sink{
		debug: log.New(w, prefix(colorGray, "[DEBUG] "), flags),
		info:  log.New(w, prefix(colorReset, "[INFO]  "), flags),
		warn:  log.New(w, prefix(colorYellow, "[WARN]  "), flags),
		err:   log.New(w, prefix(colorRed, "[ERROR] "), flags),
	}
}

func (s *sink) pick(level LogLevel) *log.Logger {
	switch level {
	case DEBUG:
		return s.debug
	case INFO:
		return s.info
	case WARN:
		return s.warn
	default:
		return s.err
	}
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.logFile != nil {
		defaultLogger.logFile.Close()
		defaultLogger.logFile = nil
		defaultLogger.file = nil
	}
}

func output(level LogLevel, msg string) {
	ensureInitialized()
	mu.Lock()
	l := defaultLogger
	mu.Unlock()

	if level < l.minLevel {
		return
	}
	// depth 3: output -> Infof -> caller
	if l.console != nil {
		l.console.pick(level).Output(3, msg)
	}
	if l.file != nil {
		l.file.pick(level).Output(3, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { output(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { output(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { output(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { output(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { output(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { output(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { output(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { output(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	output(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	output(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
