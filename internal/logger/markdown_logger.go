package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/metaformsystems/xregistry-oci/internal/logger/sanitize"
)

// MarkdownLogger writes a collapsible markdown build summary, suitable for a
// CI job summary or pull request comment.
type MarkdownLogger struct {
	logFile     *os.File
	mu          sync.Mutex
	logDir      string
	fileName    string
	useFallback bool
	initialized bool
}

var (
	globalMarkdownLogger *MarkdownLogger
	globalMarkdownMu     sync.RWMutex
)

const markdownHeader = "<details>\n<summary>xRegistry OCI build</summary>\n\n"
const markdownFooter = "\n</details>\n"

// InitMarkdownLogger initializes the global markdown logger. The file is
// truncated; if it cannot be opened, markdown logging is silently disabled.
func InitMarkdownLogger(logDir, fileName string) error {
	ml := &MarkdownLogger{
		logDir:   logDir,
		fileName: fileName,
	}

	file, err := initLogFile(logDir, fileName, os.O_TRUNC)
	if err != nil {
		ml.useFallback = true
	} else {
		ml.logFile = file
	}

	initGlobalMarkdownLogger(ml)
	return nil
}

// Close writes the closing details tag, if anything was logged, and closes the file
func (ml *MarkdownLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.logFile == nil {
		return nil
	}
	if ml.initialized {
		if _, err := ml.logFile.WriteString(markdownFooter); err != nil {
			closeLogFile(ml.logFile, "markdown")
			return err
		}
	}
	return closeLogFile(ml.logFile, "markdown")
}

func markerForLevel(level LogLevel) string {
	switch level {
	case LogLevelInfo:
		return "✓"
	case LogLevelWarn:
		return "⚠️"
	case LogLevelError:
		return "✗"
	case LogLevelDebug:
		return "🔍"
	default:
		return "•"
	}
}

// Log writes one markdown bullet. Multi-line messages go into a code block.
func (ml *MarkdownLogger) Log(level LogLevel, category, format string, args ...any) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.useFallback || ml.logFile == nil {
		return
	}

	if !ml.initialized {
		if _, err := ml.logFile.WriteString(markdownHeader); err != nil {
			return
		}
		ml.initialized = true
	}

	message := sanitize.SanitizeString(fmt.Sprintf(format, args...))
	marker := markerForLevel(level)

	var line string
	if strings.Contains(message, "\n") {
		indented := strings.ReplaceAll(message, "\n", "\n  ")
		line = fmt.Sprintf("- %s **%s**\n  ```\n  %s\n  ```\n", marker, category, indented)
	} else {
		line = fmt.Sprintf("- %s **%s** %s\n", marker, category, message)
	}

	if _, err := ml.logFile.WriteString(line); err != nil {
		return
	}
	_ = ml.logFile.Sync()
}

func logMarkdown(level LogLevel, category, format string, args ...any) {
	globalMarkdownMu.RLock()
	defer globalMarkdownMu.RUnlock()

	if globalMarkdownLogger != nil {
		globalMarkdownLogger.Log(level, category, format, args...)
	}
}

// LogInfoMd logs to both the file and the markdown logger
func LogInfoMd(category, format string, args ...any) {
	LogInfo(category, format, args...)
	logMarkdown(LogLevelInfo, category, format, args...)
}

// LogWarnMd logs to both the file and the markdown logger
func LogWarnMd(category, format string, args ...any) {
	LogWarn(category, format, args...)
	logMarkdown(LogLevelWarn, category, format, args...)
}

// LogErrorMd logs to both the file and the markdown logger
func LogErrorMd(category, format string, args ...any) {
	LogError(category, format, args...)
	logMarkdown(LogLevelError, category, format, args...)
}

// CloseMarkdownLogger closes the global markdown logger
func CloseMarkdownLogger() error {
	return closeGlobalMarkdownLogger()
}
