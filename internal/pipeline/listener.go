package pipeline

import (
	"time"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

// LogListener records task runs in the global file, JSONL and markdown logs
type LogListener struct {
	Project string
}

// TaskStarted implements Listener
func (l LogListener) TaskStarted(task *Task) {
	logger.LogInfo("task", "> Task :%s", task.Name)
	logger.LogBuildEvent(logger.BuildEvent{
		Project: l.Project,
		Task:    task.Name,
		Status:  logger.EventStarted,
	})
}

// TaskFinished implements Listener
func (l LogListener) TaskFinished(task *Task, state *State, duration time.Duration, err error) {
	event := logger.BuildEvent{
		Project:    l.Project,
		Task:       task.Name,
		Status:     logger.EventSucceeded,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		event.Status = logger.EventFailed
		event.Error = err.Error()
		logger.LogErrorMd("task", "%s failed after %s: %v", task.Name, duration.Round(time.Millisecond), err)
	} else {
		if d, size := state.Output(task.Name); d != "" {
			event.Digest = d.String()
			event.Size = size
		}
		logger.LogInfoMd("task", "%s done in %s", task.Name, duration.Round(time.Millisecond))
	}
	logger.LogBuildEvent(event)
}
