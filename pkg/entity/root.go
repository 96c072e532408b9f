package entity

import (
	"fmt"
	"strings"
)

// ExtensionRoot carries extension-level metadata from the control file.
// Exactly one exists per build and it becomes the graph root.
type ExtensionRoot struct {
	Name           string `yaml:"name"`
	Comment        string `yaml:"comment,omitempty"`
	DefaultVersion string `yaml:"default_version,omitempty"`
	ModulePathname string `yaml:"module_pathname,omitempty"`
	Relocatable    bool   `yaml:"relocatable,omitempty"`
	Superuser      bool   `yaml:"superuser,omitempty"`
	// Schema is the default schema objects are installed into.
	Schema string `yaml:"schema,omitempty"`
}

func (r *ExtensionRoot) Kind() Kind            { return KindExtensionRoot }
func (r *ExtensionRoot) Identifier() string    { return r.Name }
func (r *ExtensionRoot) DotIdentifier() string { return "extension root" }
func (r *ExtensionRoot) Location() Location    { return Location{} }
func (r *ExtensionRoot) Module() string        { return "" }

// Validate checks required fields.
func (r *ExtensionRoot) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("extension name is required")
	}
	return nil
}

// ToSQL renders the script preamble.
func (r *ExtensionRoot) ToSQL(_ Context) (string, error) {
	var b strings.Builder
	b.WriteString("/*\n")
	fmt.Fprintf(&b, "This file is generated for extension `%s`", r.Name)
	if r.DefaultVersion != "" {
		fmt.Fprintf(&b, " version %s", r.DefaultVersion)
	}
	b.WriteString(".\n")
	if r.Comment != "" {
		b.WriteString(r.Comment + "\n")
	}
	b.WriteString("\nStatement order is driven by the entity dependency graph.\n*/")
	return b.String(), nil
}
