package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
	"github.com/metaformsystems/xregistry-oci/internal/watch"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	taskStyle    = lipgloss.NewStyle().Faint(true)
)

type buildOptions struct {
	overrides pipeline.Overrides
	watch     bool
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build [task]",
		Short: "Run the packaging tasks",
		Long: `Runs ` + pipeline.BuildXRegistryOci + ` or the given task, after the tasks it depends on.
The OCI image layout and the distribution archive are written to the build
directory. With --watch, the build is repeated whenever the sources change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := pipeline.BuildXRegistryOci
			if len(args) == 1 {
				target = args[0]
			}
			return runBuild(cmd, root, opts, target)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.overrides.SourceDir, "source-dir", "", "xRegistry source directory (default: src/main/xregistry)")
	flags.StringVar(&opts.overrides.ArtifactName, "artifact-name", "", "OCI artifact name (default: <project name>-xregistry)")
	flags.StringVar(&opts.overrides.ArtifactVersion, "artifact-version", "", "OCI artifact version (default: project version)")
	flags.StringVar(&opts.overrides.BuildDir, "build-dir", "", "Build directory (default: build)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Rebuild when the sources change")
	return cmd
}

func runBuild(cmd *cobra.Command, root *rootOptions, opts *buildOptions, target string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project, err := root.project(opts.overrides)
	if err != nil {
		return err
	}
	p := pipeline.New(project,
		pipeline.WithListener(pipeline.LogListener{Project: project.Name}),
		pipeline.WithListener(&consoleListener{out: cmd.OutOrStdout()}),
	)
	if _, ok := p.Task(target); !ok {
		return fmt.Errorf("task '%s' not found in project '%s'", target, project.Name)
	}

	out := cmd.OutOrStdout()
	buildErr := buildOnce(ctx, out, p, target)
	if !opts.watch {
		return buildErr
	}

	sourceDir, err := project.SourceDir()
	if err != nil {
		return err
	}
	w, err := watch.New(sourceDir, root.cfg.Watch.Debounce(), func(ctx context.Context) error {
		return buildOnce(ctx, out, p, target)
	}, project.BuildDir)
	if err != nil {
		return err
	}
	log.Printf("Waiting for changes to %s. Press Ctrl+C to stop.", sourceDir)
	return w.Run(ctx)
}

// buildOnce runs target and prints the outcome
func buildOnce(ctx context.Context, out io.Writer, p *pipeline.Pipeline, target string) error {
	start := time.Now()
	state, err := p.Run(ctx, target)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintln(out, failureStyle.Render("BUILD FAILED")+" in "+elapsed.String())
		return err
	}

	fmt.Fprintln(out, successStyle.Render("BUILD SUCCESSFUL")+" in "+elapsed.String())
	if state.Manifest.Digest != "" {
		fmt.Fprintf(out, "  %s@%s\n", p.Project().RefName(), state.Manifest.Digest)
	}
	if state.Distribution != "" {
		fmt.Fprintf(out, "  %s\n", state.Distribution)
	}
	logger.LogInfo("build", "%s finished in %s", target, elapsed)
	return nil
}

// consoleListener prints a line per task, like a build tool's console
type consoleListener struct {
	out io.Writer
}

func (c *consoleListener) TaskStarted(task *pipeline.Task) {
	fmt.Fprintln(c.out, taskStyle.Render("> Task :"+task.Name))
}

func (c *consoleListener) TaskFinished(*pipeline.Task, *pipeline.State, time.Duration, error) {}
