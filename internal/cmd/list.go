package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
	"github.com/metaformsystems/xregistry-oci/internal/registry"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		sourceDir string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the artifacts of the registry",
		Long: `Lists the policies, schemas and rules of the registry, ordered by type,
group, name and version. Files whose names are not in compact format are not
listed; see validate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := root.project(pipeline.Overrides{SourceDir: sourceDir})
			if err != nil {
				return err
			}
			src, err := project.SourceDir()
			if err != nil {
				return err
			}

			collector := registry.Collect(src)
			entries := collector.Sorted()
			for i := range entries {
				if rel, err := filepath.Rel(src, entries[i].Path); err == nil {
					entries[i].Path = filepath.ToSlash(rel)
				}
			}
			for _, walkErr := range collector.Errors {
				cmd.PrintErrf("Warning: %v\n", walkErr)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if entries == nil {
					entries = []registry.Entry{}
				}
				return writeJSON(out, entries)
			}

			if !isTerminal(out) {
				for _, e := range entries {
					fmt.Fprintf(out, "%s\t%s\t%s\n", e.Type, e.Artifact, e.Path)
				}
				return nil
			}

			w := newTable(out)
			fmt.Fprintln(w, "TYPE\tGROUP\tNAME\tVERSION\tPATH")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Type, e.Artifact.Group, e.Artifact.Name, e.Artifact.Version, e.Path)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d artifact(s)\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source-dir", "", "xRegistry source directory (default: src/main/xregistry)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the artifacts as JSON")
	return cmd
}
