package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"cdctape/internal/scan"
)

var rawCmd = &cobra.Command{
	Use:   "raw",
	Short: "Print the raw block structure of a tape image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, tap, opts, err := openTape(cmd)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := scan.Raw(tap, os.Stdout, opts.Maps); err != nil {
			return failf(2, "%v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rawCmd)
}
