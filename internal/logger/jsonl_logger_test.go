package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLLogger_BuildEvents(t *testing.T) {
	logDir := t.TempDir()
	require.NoError(t, InitJSONLLogger(logDir, "events.jsonl"))

	LogBuildEvent(BuildEvent{Project: "demo", Task: "generateLayerDigest", Status: EventStarted})
	LogBuildEvent(BuildEvent{
		Project:    "demo",
		Task:       "generateLayerDigest",
		Status:     EventSucceeded,
		DurationMs: 12,
		Digest:     "sha256:abc",
		Size:       2048,
	})
	LogBuildEvent(BuildEvent{Task: "push", Status: EventFailed, Error: "unauthorized: password=hunter2hunter2"})
	require.NoError(t, CloseJSONLLogger())

	file, err := os.Open(filepath.Join(logDir, "events.jsonl"))
	require.NoError(t, err)
	defer file.Close()

	var events []BuildEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev BuildEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 3)

	assert.Equal(t, EventStarted, events[0].Status)
	assert.NotEmpty(t, events[0].Timestamp)
	assert.Equal(t, "sha256:abc", events[1].Digest)
	assert.EqualValues(t, 2048, events[1].Size)
	assert.NotContains(t, events[2].Error, "hunter2hunter2")
}

func TestLogBuildEvent_WithoutLoggerIsNoop(t *testing.T) {
	require.NoError(t, CloseJSONLLogger())
	assert.NotPanics(t, func() {
		LogBuildEvent(BuildEvent{Task: "x", Status: EventStarted})
	})
}

func TestJSONLLogger_LogEventAfterClose(t *testing.T) {
	jl := &JSONLLogger{}
	err := jl.LogEvent(&BuildEvent{Task: "x"})
	require.Error(t, err)
}
