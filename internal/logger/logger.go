package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel constants
const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
)

var levels = map[string]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
}

var (
	infoLogger  = log.New(os.Stdout, "", log.LstdFlags)
	errorLogger = log.New(os.Stderr, "", log.LstdFlags)
	logFile     *os.File
	logLevel    = INFO
)

// Options configures the logging system
type Options struct {
	Level     string
	File      string // optional, appended to
	ToConsole bool
}

// Init initializes the logging system. Safe to skip in tests: the package
// falls back to console loggers at info level.
func Init(opts Options) error {
	level := strings.ToLower(opts.Level)
	if _, ok := levels[level]; !ok {
		level = INFO
	}
	logLevel = level

	var outWriters, errWriters []io.Writer
	if opts.ToConsole || opts.File == "" {
		outWriters = append(outWriters, os.Stdout)
		errWriters = append(errWriters, os.Stderr)
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		logFile = f
		outWriters = append(outWriters, f)
		errWriters = append(errWriters, f)
	}

	infoLogger = log.New(io.MultiWriter(outWriters...), "", log.LstdFlags)
	errorLogger = log.New(io.MultiWriter(errWriters...), "", log.LstdFlags)

	Printf("Logger initialized (level=%s, file=%q, console=%t)", logLevel, opts.File, opts.ToConsole)
	return nil
}

// Close closes the log file
func Close() error {
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Level returns the active log level
func Level() string {
	return logLevel
}

// shouldLog determines if a message should be logged based on log level
func shouldLog(messageLevel string) bool {
	return levels[messageLevel] >= levels[logLevel]
}

// Printf logs at info level
func Printf(format string, v ...interface{}) {
	if shouldLog(INFO) {
		infoLogger.Printf(format, v...)
	}
}

// Println logs at info level
func Println(v ...interface{}) {
	if shouldLog(INFO) {
		infoLogger.Println(v...)
	}
}

// Debugf prints formatted debug text
func Debugf(format string, v ...interface{}) {
	if shouldLog(DEBUG) {
		infoLogger.Printf("DEBUG: "+format, v...)
	}
}

// Warnf prints formatted warning text
func Warnf(format string, v ...interface{}) {
	if shouldLog(WARN) {
		infoLogger.Printf("WARN: "+format, v...)
	}
}

// Errorf prints formatted error text (always logged regardless of level)
func Errorf(format string, v ...interface{}) {
	errorLogger.Printf("ERROR: "+format, v...)
}

// Fatalf prints formatted fatal error and exits (always logged)
func Fatalf(format string, v ...interface{}) {
	errorLogger.Printf("FATAL: "+format, v...)
	Close()
	os.Exit(1)
}
