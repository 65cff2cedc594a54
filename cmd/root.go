// Package cmd wires cdctape's cobra command tree: one subcommand per
// tape-wide operation (raw, catalog, dump, extract), sharing a set of
// persistent flags for tape selection, character-set choice, verbosity,
// and logging, following aiSzzPL-retroio's one-file-per-subcommand layout.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cdctape/internal/config"
	"cdctape/internal/dcode"
	"cdctape/internal/outfile"
	"cdctape/internal/scan"
	"cdctape/internal/simh"
	"cdctape/internal/tapelog"
)

var (
	tapeFile      string
	charset63     bool
	asciiMode     bool
	listLibraries bool
	useStdout     bool
	verbose       int
	debug         bool
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:           "cdctape",
	Short:         "Read and extract CDC 6000/Cyber SIMH tape images",
	Long:          `cdctape inspects and extracts SIMH-container magnetic tape images captured from CDC 6000/Cyber mainframe systems.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&tapeFile, "file", "f", "", "tape image file (required)")
	flags.BoolVarP(&charset63, "charset63", "3", false, "use the 63-character-set display-code convention")
	flags.BoolVarP(&asciiMode, "ascii", "a", false, "decode 074/076 ASCII-escape sequences in TEXT/PROC records")
	flags.BoolVarP(&listLibraries, "list-libraries", "l", false, "don't suppress ULIB member records in catalog listings")
	flags.BoolVarP(&useStdout, "stdout", "O", false, "write every extracted record to standard output")
	flags.CountVarP(&verbose, "verbose", "v", "increase output detail (repeatable)")
	flags.BoolVarP(&debug, "debug", "D", false, "enable debug logging")
	flags.StringVar(&configPath, "config", "", "path to a TOML defaults file")
}

// Execute runs the command tree; main.go's only job is to call this and
// translate the returned error into a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if ec, ok := err.(exitCoder); ok {
			return ec.ExitCode()
		}
		return 1
	}
	return 0
}

// exitCoder lets a subcommand's RunE communicate a specific exit code
// (spec.md §6/§7: 0 success, 1 usage/open failure, 2 decode/extract
// failure or -x name-not-found, 3 -d name-not-found) without cobra's own
// error-formatting machinery losing that distinction.
type exitCoder interface {
	error
	ExitCode() int
}

type cmdError struct {
	code int
	err  error
}

func (e *cmdError) Error() string { return e.err.Error() }
func (e *cmdError) ExitCode() int { return e.code }
func (e *cmdError) Unwrap() error { return e.err }

func failf(code int, format string, args ...interface{}) error {
	return &cmdError{code: code, err: fmt.Errorf(format, args...)}
}

// openTape applies config-file defaults, opens tapeFile, and builds the
// shared scan.Options for a subcommand. Callers must close the returned
// file when done.
func openTape(cmd *cobra.Command) (*os.File, *simh.Reader, scan.Options, error) {
	d, err := config.Load(configPath)
	if err != nil {
		return nil, nil, scan.Options{}, failf(1, "loading config: %v", err)
	}
	config.ApplyFlagDefaults(d, &charset63, &asciiMode, &listLibraries, &verbose,
		func(name string) bool { return cmd.Flags().Changed(flagNameFor(name)) })

	if tapeFile == "" {
		return nil, nil, scan.Options{}, failf(1, "-f/--file is required")
	}

	f, err := os.Open(tapeFile)
	if err != nil {
		return nil, nil, scan.Options{}, failf(1, "opening %s: %v", tapeFile, err)
	}

	log := tapelog.New(os.Stderr, debug)
	opts := scan.Options{
		Maps:          dcode.New(charset63),
		ASCII:         asciiMode,
		ListLibraries: listLibraries,
		Verbose:       verbose,
		Out:           outfile.New(".", useStdout),
		Log:           log,
	}
	opts.Out.SetProgress(func(format string, args ...interface{}) {
		log.Info(fmt.Sprintf(format, args...))
	})

	return f, simh.NewReader(f), opts, nil
}

// flagNameFor maps a config.Defaults field name to its cobra flag name.
func flagNameFor(name string) string {
	switch name {
	case "charset63":
		return "charset63"
	case "asciiMode":
		return "ascii"
	case "listLibraries":
		return "list-libraries"
	case "verbose":
		return "verbose"
	default:
		return name
	}
}
