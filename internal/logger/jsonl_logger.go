package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/metaformsystems/xregistry-oci/internal/logger/sanitize"
)

// JSONLLogger records build events to a JSONL file (one JSON object per line)
type JSONLLogger struct {
	logFile  *os.File
	mu       sync.Mutex
	logDir   string
	fileName string
	encoder  *json.Encoder
}

var (
	globalJSONLLogger *JSONLLogger
	globalJSONLMu     sync.RWMutex
)

// EventStatus is the lifecycle stage of a task run
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventSucceeded EventStatus = "succeeded"
	EventFailed    EventStatus = "failed"
)

// BuildEvent is a single JSONL entry describing a task run
type BuildEvent struct {
	Timestamp  string      `json:"timestamp"`
	Project    string      `json:"project,omitempty"`
	Task       string      `json:"task"`
	Status     EventStatus `json:"status"`
	DurationMs int64       `json:"duration_ms,omitempty"`
	Digest     string      `json:"digest,omitempty"`
	Size       int64       `json:"size,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// InitJSONLLogger initializes the global JSONL event logger
func InitJSONLLogger(logDir, fileName string) error {
	file, err := initLogFile(logDir, fileName, os.O_APPEND)
	if err != nil {
		return err
	}

	initGlobalJSONLLogger(&JSONLLogger{
		logFile:  file,
		logDir:   logDir,
		fileName: fileName,
		encoder:  json.NewEncoder(file),
	})
	return nil
}

// Close closes the JSONL log file
func (jl *JSONLLogger) Close() error {
	jl.mu.Lock()
	defer jl.mu.Unlock()

	return closeLogFile(jl.logFile, "jsonl")
}

// LogEvent appends an event to the JSONL file
func (jl *JSONLLogger) LogEvent(event *BuildEvent) error {
	jl.mu.Lock()
	defer jl.mu.Unlock()

	if jl.logFile == nil {
		return fmt.Errorf("JSONL logger not initialized")
	}

	if err := jl.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if err := jl.logFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}

	return nil
}

// LogBuildEvent records an event in the global JSONL logger. Timestamp is
// filled in when empty and error text is sanitized. Failures are ignored.
func LogBuildEvent(event BuildEvent) {
	globalJSONLMu.RLock()
	defer globalJSONLMu.RUnlock()

	if globalJSONLLogger == nil {
		return
	}

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Error != "" {
		event.Error = sanitize.SanitizeString(event.Error)
	}

	_ = globalJSONLLogger.LogEvent(&event)
}

// CloseJSONLLogger closes the global JSONL logger
func CloseJSONLLogger() error {
	return closeGlobalJSONLLogger()
}
