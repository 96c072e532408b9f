package entity

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeRef refers to a type by identity, by its literal source spelling and,
// when known, by its fully-qualified path.
// In YAML a bare scalar is shorthand for {text: <scalar>}.
type TypeRef struct {
	ID   string `yaml:"id,omitempty"`
	Text string `yaml:"text"`
	Path string `yaml:"path,omitempty"`
}

// Identity returns ID, falling back to Text when no identity was recorded.
func (r TypeRef) Identity() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Text
}

// FullPath returns Path, falling back to Text.
func (r TypeRef) FullPath() string {
	if r.Path != "" {
		return r.Path
	}
	return r.Text
}

func (r TypeRef) String() string {
	return r.Text
}

// UnmarshalYAML accepts a scalar or a mapping with id and text.
func (r *TypeRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Text = node.Value
		return nil
	}
	if err := checkKeys(node, "id", "text", "path"); err != nil {
		return err
	}
	type plain TypeRef
	return node.Decode((*plain)(r))
}

// PositioningRef is an explicit ordering dependency, by fuzzy path or by the
// logical name of a CustomSQL entity. Exactly one of Path and Name is set.
// In YAML a bare scalar is shorthand for {path: <scalar>}.
type PositioningRef struct {
	Path string `yaml:"path,omitempty"`
	Name string `yaml:"name,omitempty"`
}

// RefPath creates a path reference.
func RefPath(path string) PositioningRef { return PositioningRef{Path: path} }

// RefName creates a logical-name reference.
func RefName(name string) PositioningRef { return PositioningRef{Name: name} }

// IsName reports whether the reference is by logical name.
func (r PositioningRef) IsName() bool { return r.Name != "" }

func (r PositioningRef) String() string {
	if r.IsName() {
		return fmt.Sprintf("%q", r.Name)
	}
	return r.Path
}

// UnmarshalYAML accepts a scalar path or a mapping with path or name.
func (r *PositioningRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Path = node.Value
		return nil
	}
	if err := checkKeys(node, "path", "name"); err != nil {
		return err
	}
	type plain PositioningRef
	if err := node.Decode((*plain)(r)); err != nil {
		return err
	}
	if (r.Path == "") == (r.Name == "") {
		return fmt.Errorf("line %d: requires entry must set exactly one of path or name", node.Line)
	}
	return nil
}

// DeclaredKind is the kind of an entity created by hand-written SQL.
type DeclaredKind int

// Declared entity kinds.
const (
	DeclaredType DeclaredKind = iota
	DeclaredEnum
	DeclaredFunction
)

var declaredNames = map[string]DeclaredKind{
	"type":     DeclaredType,
	"enum":     DeclaredEnum,
	"function": DeclaredFunction,
}

func (k DeclaredKind) String() string {
	switch k {
	case DeclaredType:
		return "Type"
	case DeclaredEnum:
		return "Enum"
	case DeclaredFunction:
		return "Function"
	}
	return fmt.Sprintf("DeclaredKind(%d)", int(k))
}

// SQLDeclared is an entity that a CustomSQL fragment creates.
// In YAML it is written as a single-key mapping, e.g. {type: my_ext::Dog}.
type SQLDeclared struct {
	Kind DeclaredKind `yaml:"kind"`
	Path string       `yaml:"path"`
}

// Name is the SQL name of the declared entity, its last path segment.
func (d SQLDeclared) Name() string {
	_, name := SplitPath(d.Path)
	return name
}

// Matches reports whether text names this declaration by path or by SQL name.
func (d SQLDeclared) Matches(text string) bool {
	return d.Path == text || d.Name() == text
}

// IsType reports whether the declaration creates a type or enum.
func (d SQLDeclared) IsType() bool {
	return d.Kind == DeclaredType || d.Kind == DeclaredEnum
}

func (d SQLDeclared) String() string {
	return fmt.Sprintf("%s(%s)", d.Kind, d.Path)
}

// MarshalYAML encodes the single-key mapping form.
func (d SQLDeclared) MarshalYAML() (any, error) {
	return map[string]string{strings.ToLower(d.Kind.String()): d.Path}, nil
}

// UnmarshalYAML decodes the single-key mapping form.
func (d *SQLDeclared) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: creates entry must be a single-key mapping such as {type: path}", node.Line)
	}
	key, val := node.Content[0].Value, node.Content[1]
	kind, ok := declaredNames[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("line %d: unknown creates kind %q, must be one of: type, enum, function", node.Line, key)
	}
	if val.Kind != yaml.ScalarNode || val.Value == "" {
		return fmt.Errorf("line %d: creates %s needs a path", node.Line, key)
	}
	d.Kind = kind
	d.Path = val.Value
	return nil
}

func checkKeys(node *yaml.Node, allowed ...string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		found := false
		for _, a := range allowed {
			if key == a {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("line %d: field %s not found, expected one of: %s", node.Content[i].Line, key, strings.Join(allowed, ", "))
		}
	}
	return nil
}
