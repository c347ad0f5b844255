package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
	"github.com/metaformsystems/xregistry-oci/internal/validate"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the registry documents and file names",
		Long: `Checks that every artifact parses as JSON or YAML, that schema artifacts
compile as JSON Schema and that no artifact is defined twice. Files with
non-compact names are reported as warnings. Exits non-zero on errors.`,
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

			report, err := validate.Validate(src)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, issue := range report.Issues {
				fmt.Fprintln(out, issue)
			}
			errs, warnings := report.Count(validate.SeverityError), report.Count(validate.SeverityWarning)
			fmt.Fprintf(out, "%d artifact(s), %d error(s), %d warning(s)\n", len(report.Artifacts), errs, warnings)
			logger.LogInfoMd("validate", "%d artifact(s), %d error(s), %d warning(s)", len(report.Artifacts), errs, warnings)

			if report.HasErrors() {
				return fmt.Errorf("registry %s has %d error(s)", src, errs)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source-dir", "", "xRegistry source directory (default: src/main/xregistry)")
	return cmd
}
