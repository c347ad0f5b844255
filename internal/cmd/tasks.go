package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
)

func newTasksCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the packaging tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := root.project(pipeline.Overrides{})
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "TASK\tGROUP\tDEPENDS ON\tDESCRIPTION")
			for _, t := range pipeline.New(project).Tasks() {
				deps := strings.Join(t.DependsOn, ", ")
				if deps == "" {
					deps = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Group, deps, t.Description)
			}
			return w.Flush()
		},
	}
}
