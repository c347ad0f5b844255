package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/metaformsystems/xregistry-oci/internal/logger/sanitize"
)

// FileLogger writes leveled, categorized lines to a log file, falling back to
// stderr when the file cannot be opened. Stdout is left alone because it
// carries the MCP stdio transport of xroci serve.
type FileLogger struct {
	logFile     *os.File
	logger      *log.Logger
	mu          sync.Mutex
	logDir      string
	fileName    string
	useFallback bool
}

var (
	globalFileLogger *FileLogger
	globalLoggerMu   sync.RWMutex
)

// InitFileLogger initializes the global file logger.
// If the log directory can't be created, logging falls back to stderr.
func InitFileLogger(logDir, fileName string) error {
	fl := &FileLogger{
		logDir:   logDir,
		fileName: fileName,
	}

	file, err := initLogFile(logDir, fileName, os.O_APPEND)
	if err != nil {
		log.Printf("WARNING: Failed to initialize log file: %v", err)
		log.Printf("WARNING: Falling back to stderr for logging")
		fl.useFallback = true
		fl.logger = log.New(os.Stderr, "", 0)
		initGlobalFileLogger(fl)
		return nil
	}

	fl.logFile = file
	fl.logger = log.New(file, "", 0)

	log.Printf("Logging to file: %s", filepath.Join(logDir, fileName))

	initGlobalFileLogger(fl)
	return nil
}

// Close closes the log file
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	return closeLogFile(fl.logFile, "file")
}

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelDebug LogLevel = "DEBUG"
)

// Log writes "[timestamp] [LEVEL] [category] message". Messages are
// sanitized so registry credentials never reach the file.
func (fl *FileLogger) Log(level LogLevel, category, format string, args ...any) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	timestamp := time.Now().UTC().Format(time.RFC3339)
	message := sanitize.SanitizeString(fmt.Sprintf(format, args...))

	fl.logger.Printf("[%s] [%s] [%s] %s", timestamp, level, category, message)

	// Flush immediately so a concurrent `tail -f` sees the line
	if fl.logFile != nil {
		if err := fl.logFile.Sync(); err != nil {
			log.Printf("WARNING: Failed to sync log file: %v", err)
		}
	}
}

// Writer returns the underlying writer of the file logger
func (fl *FileLogger) Writer() io.Writer {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.logFile != nil {
		return fl.logFile
	}
	return os.Stderr
}

func logGlobal(level LogLevel, category, format string, args ...any) {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()

	if globalFileLogger != nil {
		globalFileLogger.Log(level, category, format, args...)
	}
}

// LogInfo logs an informational message to the global file logger
func LogInfo(category, format string, args ...any) {
	logGlobal(LogLevelInfo, category, format, args...)
}

// LogWarn logs a warning message to the global file logger
func LogWarn(category, format string, args ...any) {
	logGlobal(LogLevelWarn, category, format, args...)
}

// LogError logs an error message to the global file logger
func LogError(category, format string, args ...any) {
	logGlobal(LogLevelError, category, format, args...)
}

// LogDebug logs a debug message to the global file logger
func LogDebug(category, format string, args ...any) {
	logGlobal(LogLevelDebug, category, format, args...)
}

// CloseGlobalLogger closes the global file logger
func CloseGlobalLogger() error {
	return closeGlobalFileLogger()
}
