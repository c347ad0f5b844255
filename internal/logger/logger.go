// Package logger provides namespaced debug logging plus the file, JSONL and
// markdown sinks used by xroci.
//
// Debug loggers are created per component with New("pkg:component") and are
// switched on through the DEBUG environment variable:
//
//	DEBUG=*                    enable everything
//	DEBUG=pipeline:*           enable one namespace
//	DEBUG=oci:*,registry:*     enable several namespaces
//	DEBUG=*,-oci:tar           enable everything except oci:tar
//
// Output goes to stderr with a per-namespace color (when stderr is a terminal)
// and a time diff since the previous line of the same logger. When the global
// file logger is initialized, every debug line is mirrored to it at DEBUG
// level with the namespace as category.
package logger

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Logger is a namespaced debug logger
type Logger struct {
	namespace string
	enabled   bool
	color     string

	mu   sync.Mutex
	last time.Time
}

const colorReset = "\033[0m"

var colorPalette = []string{
	"\033[38;5;33m",  // blue
	"\033[38;5;35m",  // green
	"\033[38;5;166m", // orange
	"\033[38;5;135m", // purple
	"\033[38;5;37m",  // teal
	"\033[38;5;161m", // magenta
	"\033[38;5;178m", // gold
	"\033[38;5;69m",  // slate
}

var (
	// debugColors is false when DEBUG_COLORS=0
	debugColors = os.Getenv("DEBUG_COLORS") != "0"
	// isTTY reports whether stderr is attached to a terminal
	isTTY = term.IsTerminal(int(os.Stderr.Fd()))
)

// New creates a logger for the given namespace. Whether it is enabled is
// decided once, from the DEBUG environment variable at creation time.
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   computeEnabled(namespace),
		color:     selectColor(namespace),
	}
}

// Enabled reports whether the logger writes output
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Printf formats like fmt.Printf and writes a debug line
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprintf(format, args...))
}

// Print concatenates like fmt.Sprint and writes a debug line
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprint(args...))
}

func (l *Logger) write(message string) {
	l.mu.Lock()
	now := time.Now()
	var diff time.Duration
	if !l.last.IsZero() {
		diff = now.Sub(l.last)
	}
	l.last = now
	l.mu.Unlock()

	if l.color != "" {
		fmt.Fprintf(os.Stderr, "%s%s%s %s %s+%s%s\n", l.color, l.namespace, colorReset, message, l.color, formatDiff(diff), colorReset)
	} else {
		fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, message, formatDiff(diff))
	}

	// Mirror into the file logger without colors
	LogDebug(l.namespace, "%s", message)
}

func formatDiff(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// selectColor picks a stable color for a namespace, or "" when colors are off
func selectColor(namespace string) string {
	if !debugColors || !isTTY {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(namespace))
	return colorPalette[h.Sum32()%uint32(len(colorPalette))]
}

// computeEnabled evaluates the DEBUG patterns for a namespace. Exclusions
// (patterns starting with "-") always win over inclusions.
func computeEnabled(namespace string) bool {
	debugEnv := os.Getenv("DEBUG")
	if debugEnv == "" {
		return false
	}

	enabled := false
	for _, pattern := range strings.Split(debugEnv, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.HasPrefix(pattern, "-") {
			if matchPattern(namespace, pattern[1:]) {
				return false
			}
			continue
		}
		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}
	return enabled
}

// matchPattern matches a namespace against a pattern with a single optional
// "*" wildcard at the start, the end or in the middle.
func matchPattern(namespace, pattern string) bool {
	if pattern == "*" {
		return true
	}

	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return namespace == pattern
	}

	prefix := pattern[:idx]
	suffix := pattern[idx+1:]
	if len(namespace) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(namespace, prefix) && strings.HasSuffix(namespace, suffix)
}
