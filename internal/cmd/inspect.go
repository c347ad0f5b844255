package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/inspect"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		layoutDir string
		query     string
		files     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the documents of an OCI image layout",
		Long: `Prints {index, manifest, config} of the layout written by the last build,
or of --layout. Blob digests are verified while reading. --query runs a jq
expression over the document, e.g.

  xroci inspect --query '.manifest.layers[0].digest'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if layoutDir == "" {
				project, err := root.project(pipeline.Overrides{})
				if err != nil {
					return err
				}
				layoutDir = project.BuildPath(oci.LayoutDir)
			}

			layout, err := inspect.Load(layoutDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if files {
				entries, err := layout.LayerEntries()
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintln(out, e)
				}
				return nil
			}

			doc, err := layout.Document()
			if err != nil {
				return err
			}
			if query == "" {
				return writeJSON(out, doc)
			}

			results, err := inspect.Query(doc, query)
			if err != nil {
				return err
			}
			for _, r := range results {
				// Strings are printed raw, like jq -r
				if s, ok := r.(string); ok {
					fmt.Fprintln(out, s)
					continue
				}
				if err := writeJSON(out, r); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&layoutDir, "layout", "", "Layout directory (default: <build-dir>/"+oci.LayoutDir+")")
	cmd.Flags().StringVarP(&query, "query", "q", "", "jq expression to run over the document")
	cmd.Flags().BoolVar(&files, "files", false, "List the files in the xRegistry layer")
	return cmd
}
