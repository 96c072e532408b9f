// Package output renders command results for terminals, markdown consumers
// and JSON consumers.
package output

import "fmt"

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	// ModeAuto picks text on a terminal and markdown otherwise.
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Mode converts a config value to an OutputMode. Empty means auto.
func Mode(s string) OutputMode {
	if s == "" {
		return ModeAuto
	}
	return OutputMode(s)
}

// ParseMode converts s to an OutputMode, rejecting unknown values.
func ParseMode(s string) (OutputMode, error) {
	switch m := Mode(s); m {
	case ModeAuto, ModeText, ModeMarkdown, ModeJSON:
		return m, nil
	}
	return "", fmt.Errorf("unknown output mode %q", s)
}
