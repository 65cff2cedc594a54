// Package config loads optional TOML defaults for the modifier flags the
// CLI also exposes, so a user with one habitual set of options (charset,
// verbosity, library listing) doesn't need to repeat them on every
// invocation. Flags explicitly set on the command line always win.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults only needs a nice exported name so the TOML decoder produces
// useful error messages on malformed input.
type Defaults struct {
	Charset63     bool `toml:"charset63"`
	ASCIIMode     bool `toml:"asciiMode"`
	ListLibraries bool `toml:"listLibraries"`
	Verbose       int  `toml:"verbose"`
}

// Load reads and decodes a TOML defaults file at path. A missing file is
// not an error; Load then returns the zero Defaults.
func Load(path string) (Defaults, error) {
	var d Defaults
	if path == "" {
		return d, nil
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, err
	}

	if _, err := toml.Decode(string(blob), &d); err != nil {
		return d, err
	}
	return d, nil
}

// ApplyFlagDefaults copies any Defaults field the caller hasn't already
// set via an explicit CLI flag. explicitlySet reports, per field name
// ("charset63", "asciiMode", "listLibraries", "verbose"), whether the CLI
// layer saw that flag on the command line.
func ApplyFlagDefaults(d Defaults, charset63, asciiMode, listLibraries *bool, verbose *int, explicitlySet func(name string) bool) {
	if !explicitlySet("charset63") {
		*charset63 = d.Charset63
	}
	if !explicitlySet("asciiMode") {
		*asciiMode = d.ASCIIMode
	}
	if !explicitlySet("listLibraries") {
		*listLibraries = d.ListLibraries
	}
	if !explicitlySet("verbose") && d.Verbose != 0 {
		*verbose = d.Verbose
	}
}
