package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"cdctape/internal/scan"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the records on a tape image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, tap, opts, err := openTape(cmd)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := scan.Catalog(tap, os.Stdout, opts); err != nil {
			return failf(2, "%v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
