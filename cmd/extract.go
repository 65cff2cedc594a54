package cmd

import (
	"github.com/spf13/cobra"

	"cdctape/internal/scan"
)

var extractCmd = &cobra.Command{
	Use:   "extract NAME...",
	Short: "Extract matching records to files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, tap, opts, err := openTape(cmd)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := scan.Extract(tap, args, opts); err != nil {
			return failf(2, "%v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
