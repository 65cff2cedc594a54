package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"cdctape/internal/result"
	"cdctape/internal/scan"
)

var dumpCmd = &cobra.Command{
	Use:   "dump NAME...",
	Short: "Dump the PFDUMP sub-record structure of matching records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, tap, opts, err := openTape(cmd)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := scan.DumpStructure(tap, os.Stdout, args, opts.Verbose, opts.Maps); err != nil {
			if _, ok := err.(*result.Collector); ok {
				return failf(3, "%v", err)
			}
			return failf(2, "%v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
