package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/config"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
	"github.com/metaformsystems/xregistry-oci/internal/push"
)

// pulledLayoutDir is the default pull destination inside the build directory
const pulledLayoutDir = "pulled-layout"

// registryFlags are shared by push and pull
type registryFlags struct {
	plainHTTP   bool
	username    string
	password    string
	concurrency int
}

func (f *registryFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.plainHTTP, "plain-http", false, "Use HTTP instead of HTTPS (default: registry.plain_http)")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "Registry username (default: registry.username or "+config.EnvRegistryUsername+")")
	cmd.Flags().StringVar(&f.password, "password", "", "Registry password (default: registry.password or "+config.EnvRegistryPassword+")")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Number of blobs copied in parallel (default: oras default)")
}

// options merges the flags with the configuration; flags that were set win
func (f *registryFlags) options(cmd *cobra.Command, cfg *config.Config) push.Options {
	username, password := config.RegistryCredentials(cfg)
	opts := push.Options{
		PlainHTTP:   cfg.Registry.PlainHTTP,
		Username:    username,
		Password:    password,
		UserAgent:   "xroci/" + version,
		Concurrency: f.concurrency,
	}
	if cmd.Flags().Changed("plain-http") {
		opts.PlainHTTP = f.plainHTTP
	}
	if f.username != "" {
		opts.Username = f.username
	}
	if f.password != "" {
		opts.Password = f.password
	}
	return opts
}

func newPushCmd(root *rootOptions) *cobra.Command {
	var (
		flags     registryFlags
		overrides pipeline.Overrides
	)

	cmd := &cobra.Command{
		Use:   "push [reference]",
		Short: "Push the built artifact to an OCI registry",
		Long: `Copies the artifact of the last build from the OCI image layout to a
registry. The reference is "registry/repository[:tag]"; without one,
registry.repository from the configuration is used. Without a tag the
artifact version is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			target := root.cfg.Registry.Repository
			if len(args) == 1 {
				target = args[0]
			}
			if target == "" {
				return errors.New("no target reference given; pass one or set registry.repository in " + config.DefaultConfigFile)
			}

			project, err := root.project(overrides)
			if err != nil {
				return err
			}
			layoutDir := project.BuildPath(oci.LayoutDir)
			if _, err := os.Stat(filepath.Join(layoutDir, "index.json")); err != nil {
				return fmt.Errorf("no OCI image layout in %s; run 'xroci build' first", layoutDir)
			}

			desc, err := push.Push(ctx, layoutDir, project.RefName(), target, flags.options(cmd, root.cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s to %s\n  digest: %s\n  size: %d\n", project.RefName(), target, desc.Digest, desc.Size)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&overrides.ArtifactName, "artifact-name", "", "OCI artifact name used at build time")
	cmd.Flags().StringVar(&overrides.ArtifactVersion, "artifact-version", "", "OCI artifact version used at build time")
	cmd.Flags().StringVar(&overrides.BuildDir, "build-dir", "", "Build directory (default: build)")
	return cmd
}

func newPullCmd(root *rootOptions) *cobra.Command {
	var (
		flags     registryFlags
		layoutDir string
		refName   string
	)

	cmd := &cobra.Command{
		Use:   "pull <reference>",
		Short: "Pull an artifact from an OCI registry into a local layout",
		Long: `Copies "registry/repository:tag" (or "@digest") into an OCI image layout.
The layout can then be read with 'xroci inspect --layout'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if layoutDir == "" {
				project, err := root.project(pipeline.Overrides{})
				if err != nil {
					return err
				}
				layoutDir = project.BuildPath(pulledLayoutDir)
			}

			desc, err := push.Pull(ctx, args[0], layoutDir, refName, flags.options(cmd, root.cfg))
			if push.IsNotFound(err) {
				return fmt.Errorf("%s not found in the registry: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled %s into %s\n  digest: %s\n", args[0], layoutDir, desc.Digest)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&layoutDir, "layout", "", "Destination layout directory (default: <build-dir>/"+pulledLayoutDir+")")
	cmd.Flags().StringVarP(&refName, "tag", "t", "", "Reference name in the layout (default: <repository name>:<tag>)")
	return cmd
}
