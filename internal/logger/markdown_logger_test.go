package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownLogger_Summary(t *testing.T) {
	logDir := t.TempDir()
	require.NoError(t, InitMarkdownLogger(logDir, "summary.md"))

	LogInfoMd("build", "packaged %s", "demo-xregistry-1.0.tar")
	LogWarnMd("registry", "ignored file %s", "notes.json")
	LogErrorMd("validate", "schemas/acme.order.1.json:\nunexpected end of JSON input")
	require.NoError(t, CloseMarkdownLogger())

	content, err := os.ReadFile(filepath.Join(logDir, "summary.md"))
	require.NoError(t, err)
	text := string(content)

	assert.True(t, strings.HasPrefix(text, "<details>"))
	assert.True(t, strings.HasSuffix(text, "</details>\n"))
	assert.Contains(t, text, "- ✓ **build** packaged demo-xregistry-1.0.tar")
	assert.Contains(t, text, "- ⚠️ **registry** ignored file notes.json")
	assert.Contains(t, text, "```")
}

func TestMarkdownLogger_EmptyWhenNothingLogged(t *testing.T) {
	logDir := t.TempDir()
	require.NoError(t, InitMarkdownLogger(logDir, "summary.md"))
	require.NoError(t, CloseMarkdownLogger())

	content, err := os.ReadFile(filepath.Join(logDir, "summary.md"))
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestCloseAll(t *testing.T) {
	logDir := t.TempDir()
	require.NoError(t, InitFileLogger(logDir, "xroci.log"))
	require.NoError(t, InitJSONLLogger(logDir, "events.jsonl"))
	require.NoError(t, InitMarkdownLogger(logDir, "summary.md"))

	require.NoError(t, CloseAll())

	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	assert.Nil(t, globalFileLogger)
}
