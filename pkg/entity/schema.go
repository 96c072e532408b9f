package entity

import "fmt"

// Schema declares a namespace owned by a module path.
type Schema struct {
	Name       string `yaml:"name"`
	ModulePath string `yaml:"module_path"`
	File       string `yaml:"file,omitempty"`
	Line       int    `yaml:"line,omitempty"`
}

func (s *Schema) Kind() Kind            { return KindSchema }
func (s *Schema) Identifier() string    { return s.ModulePath }
func (s *Schema) DotIdentifier() string { return "schema " + s.ModulePath }
func (s *Schema) Location() Location    { return Location{File: s.File, Line: s.Line} }
func (s *Schema) Module() string        { return s.ModulePath }

// Builtin reports whether the schema always exists in the target database.
func (s *Schema) Builtin() bool {
	return s.Name == "public" || s.Name == "pg_catalog"
}

// Validate checks required fields.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema at %s: name is required", s.Location())
	}
	return nil
}

func (s *Schema) ToSQL(_ Context) (string, error) {
	if s.Builtin() {
		return "", nil
	}
	return header(s.Location(), s.ModulePath) +
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", s.Name), nil
}
