// Package config provides configuration management for the extsql CLI.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	// Manifest is a manifest file or a directory of manifest files.
	Manifest string `koanf:"manifest"`
	// Out is the script destination; "-" writes to stdout.
	Out string `koanf:"out"`
	// DOT is an optional Graphviz destination written next to the script.
	DOT           string        `koanf:"dot"`
	OutputFormat  string        `koanf:"output"`
	Verbose       bool          `koanf:"verbose"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`

	// ProjectRoot anchors relative paths. It is the config file's directory,
	// or the working directory when there is none.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the config file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultManifest      = "extension.yaml"
	DefaultOut           = "-"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultWatchDebounce = 200 * time.Millisecond

	// Stdout is the Out value that writes to standard output.
	Stdout = "-"
)

// ConfigFileNames are searched, in order, when no config file is given.
var ConfigFileNames = []string{"extsql.yaml", "extsql.yml"}

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "EXTSQL_"
