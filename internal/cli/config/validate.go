package config

import (
	"fmt"
	"os"
)

var validOutputs = map[string]bool{
	"auto":     true,
	"text":     true,
	"markdown": true,
	"json":     true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if !validOutputs[c.OutputFormat] {
		return fmt.Errorf("invalid output format %q, must be one of: auto, text, markdown, json", c.OutputFormat)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	return nil
}

// ValidateManifest checks that the manifest path exists.
func (c *Config) ValidateManifest() error {
	if _, err := os.Stat(c.Manifest); os.IsNotExist(err) {
		return fmt.Errorf("manifest does not exist: %s\nHint: Create it or use --manifest to specify a different path", c.Manifest)
	}
	return nil
}
