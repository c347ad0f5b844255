package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaformsystems/xregistry-oci/internal/oci"
)

type recordingListener struct {
	mu       sync.Mutex
	started  []string
	finished []string
	errs     []error
}

func (r *recordingListener) TaskStarted(task *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, task.Name)
}

func (r *recordingListener) TaskFinished(task *Task, _ *State, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, task.Name)
	r.errs = append(r.errs, err)
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewProject(t.TempDir(), nil, Overrides{})
	require.NoError(t, err)
	return New(p, opts...)
}

func TestPipeline_Tasks(t *testing.T) {
	p := newTestPipeline(t)

	var names []string
	for _, task := range p.Tasks() {
		names = append(names, task.Name)
		assert.Equal(t, oci.TaskGroup, task.Group)
		assert.NotEmpty(t, task.Description)
	}
	assert.Equal(t, []string{
		"prepareXRegistryFiles",
		"createXRegistryLayer",
		"generateLayerDigest",
		"createOciConfig",
		"createOciManifest",
		"createOciLayout",
		"packageOciArtifact",
		"buildXRegistryOci",
	}, names)

	task, ok := p.Task(BuildXRegistryOci)
	require.True(t, ok)
	assert.Equal(t, "Builds an xRegistry as an OCI distribution artifact", task.Description)
	assert.Equal(t, []string{PackageOciArtifact}, task.DependsOn)

	_, ok = p.Task("jar")
	assert.False(t, ok)
}

func TestPipeline_Plan(t *testing.T) {
	p := newTestPipeline(t)

	plan, err := p.Plan(CreateOciConfig)
	require.NoError(t, err)

	var names []string
	for _, task := range plan {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{PrepareXRegistryFiles, CreateXRegistryLayer, GenerateLayerDigest, CreateOciConfig}, names)

	_, err = p.Plan("jar")
	assert.EqualError(t, err, "task 'jar' not found")
}

func TestPipeline_PlanRunsSharedDependencyOnce(t *testing.T) {
	p := newTestPipeline(t)
	p.register(&Task{Name: "a"})
	p.register(&Task{Name: "b", DependsOn: []string{"a"}})
	p.register(&Task{Name: "c", DependsOn: []string{"a"}})
	p.register(&Task{Name: "d", DependsOn: []string{"b", "c"}})

	plan, err := p.Plan("d")
	require.NoError(t, err)
	require.Len(t, plan, 4)
	assert.Equal(t, "a", plan[0].Name)
	assert.Equal(t, "d", plan[3].Name)
}

func TestPipeline_PlanErrors(t *testing.T) {
	p := newTestPipeline(t)
	p.register(&Task{Name: "x", DependsOn: []string{"y"}})
	p.register(&Task{Name: "y", DependsOn: []string{"x"}})
	p.register(&Task{Name: "orphan", DependsOn: []string{"missing"}})

	_, err := p.Plan("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")

	_, err = p.Plan("orphan")
	assert.EqualError(t, err, "task 'missing' required by 'orphan' not found")
}

func TestPipeline_RunWrapsFailures(t *testing.T) {
	listener := &recordingListener{}
	p := newTestPipeline(t, WithListener(listener))

	cause := errors.New("disk full")
	var ran []string
	p.register(&Task{Name: "first", Action: func(context.Context, *Build) error {
		ran = append(ran, "first")
		return nil
	}})
	p.register(&Task{Name: "second", DependsOn: []string{"first"}, Action: func(context.Context, *Build) error {
		ran = append(ran, "second")
		return cause
	}})
	p.register(&Task{Name: "third", DependsOn: []string{"second"}, Action: func(context.Context, *Build) error {
		ran = append(ran, "third")
		return nil
	}})

	_, err := p.Run(context.Background(), "third")
	require.Error(t, err)
	assert.EqualError(t, err, "task second failed: disk full")
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, []string{"first", "second"}, ran)
	assert.Equal(t, []string{"first", "second"}, listener.started)
	assert.Equal(t, []string{"first", "second"}, listener.finished)
	assert.NoError(t, listener.errs[0])
	assert.Error(t, listener.errs[1])
}

func TestPipeline_RunHonorsCancellation(t *testing.T) {
	p := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	p.register(&Task{Name: "cancel", Action: func(context.Context, *Build) error {
		cancel()
		return nil
	}})
	p.register(&Task{Name: "after", DependsOn: []string{"cancel"}, Action: func(context.Context, *Build) error {
		t.Fatal("task ran after cancellation")
		return nil
	}})

	_, err := p.Run(ctx, "after")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "before task after")
}

func TestPipeline_RunUnknownTask(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Run(context.Background(), "assemble")
	assert.EqualError(t, err, "task 'assemble' not found")
}

func TestPipeline_MultipleListeners(t *testing.T) {
	first, second := &recordingListener{}, &recordingListener{}
	p := newTestPipeline(t, WithListener(first), WithListener(second))
	p.register(&Task{Name: "only"})

	_, err := p.Run(context.Background(), "only")
	require.NoError(t, err)

	for _, l := range []*recordingListener{first, second} {
		assert.Equal(t, []string{"only"}, l.started)
		assert.Equal(t, []string{"only"}, l.finished)
		assert.Equal(t, []error{nil}, l.errs)
	}
}
