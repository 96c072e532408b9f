package entity

import (
	"fmt"
	"strings"
)

// CustomSQL is a hand-written SQL fragment.
type CustomSQL struct {
	// Name is the optional logical name other fragments can require.
	Name       string `yaml:"name,omitempty"`
	ModulePath string `yaml:"module_path"`
	SQL        string `yaml:"sql"`
	File       string `yaml:"file,omitempty"`
	Line       int    `yaml:"line,omitempty"`
	// Bootstrap fragments run first, right after the root.
	Bootstrap bool `yaml:"bootstrap,omitempty"`
	// Finalize fragments run last.
	Finalize bool             `yaml:"finalize,omitempty"`
	Requires []PositioningRef `yaml:"requires,omitempty"`
	Creates  []SQLDeclared    `yaml:"creates,omitempty"`
}

func (c *CustomSQL) Kind() Kind { return KindCustomSQL }

func (c *CustomSQL) Identifier() string {
	if c.Name != "" {
		return JoinPath(c.ModulePath, c.Name)
	}
	return JoinPath(c.ModulePath, c.Location().String())
}

func (c *CustomSQL) DotIdentifier() string { return "sql " + c.Identifier() }
func (c *CustomSQL) Location() Location    { return Location{File: c.File, Line: c.Line} }
func (c *CustomSQL) Module() string        { return c.ModulePath }

// Declares returns the type-like declaration matching a full path or SQL name, if any.
func (c *CustomSQL) Declares(path string) (SQLDeclared, bool) {
	for _, d := range c.Creates {
		if d.IsType() && d.Matches(path) {
			return d, true
		}
	}
	return SQLDeclared{}, false
}

// Validate checks flag combinations.
func (c *CustomSQL) Validate() error {
	if c.Bootstrap && c.Finalize {
		return fmt.Errorf("custom sql `%s` (%s): cannot be both bootstrap and finalize", c.Identifier(), c.Location())
	}
	return nil
}

func (c *CustomSQL) ToSQL(_ Context) (string, error) {
	var b strings.Builder
	b.WriteString(header(c.Location(), c.Identifier()))
	if c.Bootstrap {
		b.WriteString("-- bootstrap\n")
	}
	creates := make([]string, 0, len(c.Creates))
	for _, d := range c.Creates {
		creates = append(creates, d.String())
	}
	listComment(&b, "creates", creates)
	listComment(&b, "requires", refStrings(c.Requires))
	if c.Finalize {
		b.WriteString("-- finalize\n")
	}
	b.WriteString(strings.TrimSpace(c.SQL))
	return b.String(), nil
}

func refStrings(refs []PositioningRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.String())
	}
	return out
}
