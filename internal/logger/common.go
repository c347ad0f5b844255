package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// closeLogFile syncs and closes a log file. Sync failures are reported on the
// standard logger but never prevent the close; close failures are returned.
// The owning logger's mutex must be held by the caller.
func closeLogFile(file *os.File, loggerName string) error {
	if file == nil {
		return nil
	}

	if err := file.Sync(); err != nil {
		log.Printf("WARNING: Failed to sync %s log file before close: %v", loggerName, err)
	}

	return file.Close()
}

// initLogFile creates logDir when needed and opens logDir/fileName for writing
// with the given extra flags (os.O_APPEND or os.O_TRUNC). It never falls back
// to another sink; callers decide what to do with the error.
func initLogFile(logDir, fileName string, flags int) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fileName)
	file, err := os.OpenFile(logPath, flags|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}
