// Package pipeline packages an xRegistry into an OCI artifact through a
// chain of named tasks.
//
// Each task depends on the one before it:
//
//	prepareXRegistryFiles → createXRegistryLayer → generateLayerDigest →
//	createOciConfig → createOciManifest → createOciLayout →
//	packageOciArtifact → buildXRegistryOci
//
// Running a task runs everything it depends on first, each task once.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

var logPipeline = logger.New("pipeline:pipeline")

// Action performs the work of a task
type Action func(ctx context.Context, b *Build) error

// Task is a named unit of the packaging chain
type Task struct {
	Name        string
	Description string
	Group       string
	DependsOn   []string
	Action      Action
}

// Build is passed to every task action of a run
type Build struct {
	Project *Project
	State   *State
}

// Listener is told about every task that runs
type Listener interface {
	TaskStarted(task *Task)
	TaskFinished(task *Task, state *State, duration time.Duration, err error)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithListener reports task runs to l, after any listener added before it
func WithListener(l Listener) Option {
	return func(p *Pipeline) {
		p.listeners = append(p.listeners, l)
	}
}

// Pipeline holds the registered tasks of a project
type Pipeline struct {
	project   *Project
	tasks     map[string]*Task
	order     []string
	listeners []Listener
}

// New creates a pipeline with the packaging tasks registered
func New(project *Project, opts ...Option) *Pipeline {
	p := &Pipeline{
		project: project,
		tasks:   make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, t := range packagingTasks() {
		p.register(t)
	}
	return p
}

func (p *Pipeline) register(t *Task) {
	p.tasks[t.Name] = t
	p.order = append(p.order, t.Name)
}

// Project returns the project the pipeline builds
func (p *Pipeline) Project() *Project {
	return p.project
}

// Tasks returns all tasks in registration order
func (p *Pipeline) Tasks() []*Task {
	tasks := make([]*Task, 0, len(p.order))
	for _, name := range p.order {
		tasks = append(tasks, p.tasks[name])
	}
	return tasks
}

// Task looks up a task by name
func (p *Pipeline) Task(name string) (*Task, bool) {
	t, ok := p.tasks[name]
	return t, ok
}

// Plan returns target and its transitive dependencies in execution order
func (p *Pipeline) Plan(target string) ([]*Task, error) {
	var plan []*Task
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(name string, requiredBy string) error
	visit = func(name string, requiredBy string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("circular dependency between tasks '%s' and '%s'", requiredBy, name)
		}
		t, ok := p.tasks[name]
		if !ok {
			if requiredBy == "" {
				return fmt.Errorf("task '%s' not found", name)
			}
			return fmt.Errorf("task '%s' required by '%s' not found", name, requiredBy)
		}

		visiting[name] = true
		for _, dep := range t.DependsOn {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		plan = append(plan, t)
		return nil
	}

	if err := visit(target, ""); err != nil {
		return nil, err
	}
	return plan, nil
}

// Run executes target after its dependencies. Cancellation is checked
// between tasks. The returned state holds whatever the executed tasks
// produced, also on failure.
func (p *Pipeline) Run(ctx context.Context, target string) (*State, error) {
	plan, err := p.Plan(target)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(plan))
	for i, t := range plan {
		names[i] = t.Name
	}
	logPipeline.Printf("Running %s: plan=%v", target, names)

	b := &Build{Project: p.project, State: &State{}}
	for _, t := range plan {
		if err := ctx.Err(); err != nil {
			return b.State, fmt.Errorf("build cancelled before task %s: %w", t.Name, err)
		}

		for _, l := range p.listeners {
			l.TaskStarted(t)
		}
		start := time.Now()

		var runErr error
		if t.Action != nil {
			runErr = t.Action(ctx, b)
		}
		if runErr != nil {
			runErr = fmt.Errorf("task %s failed: %w", t.Name, runErr)
		}

		duration := time.Since(start)
		logPipeline.Printf("Task %s finished: duration=%s, err=%v", t.Name, duration, runErr)
		for _, l := range p.listeners {
			l.TaskFinished(t, b.State, duration, runErr)
		}
		if runErr != nil {
			return b.State, runErr
		}
	}
	return b.State, nil
}
