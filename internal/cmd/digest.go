package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/oci"
)

func newDigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest <file>",
		Short: "Print the SHA-256 digest of a file",
		Long:  "Prints the lowercase hex SHA-256 of a file, in the format generateLayerDigest writes for the layer archive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := oci.Sha256File(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sum)
			return nil
		},
	}
}
