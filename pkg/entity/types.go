package entity

import (
	"fmt"
	"strings"
)

// Mapping maps a type identity to its SQL spelling.
type Mapping struct {
	ID  string `yaml:"id"`
	SQL string `yaml:"sql"`
}

// Type is a user-defined base type with input and output conversion functions.
type Type struct {
	Name       string `yaml:"name"`
	ModulePath string `yaml:"module_path"`
	// FullPath defaults to ModulePath::Name.
	FullPath string    `yaml:"full_path,omitempty"`
	File     string    `yaml:"file,omitempty"`
	Line     int       `yaml:"line,omitempty"`
	Mappings []Mapping `yaml:"mappings,omitempty"`
	InFn     string    `yaml:"in_fn"`
	// InFnModulePath defaults to ModulePath.
	InFnModulePath string `yaml:"in_fn_module_path,omitempty"`
	OutFn          string `yaml:"out_fn"`
	// OutFnModulePath defaults to ModulePath.
	OutFnModulePath string `yaml:"out_fn_module_path,omitempty"`
}

func (t *Type) Kind() Kind { return KindType }

func (t *Type) Identifier() string {
	if t.FullPath != "" {
		return t.FullPath
	}
	return JoinPath(t.ModulePath, t.Name)
}

func (t *Type) DotIdentifier() string { return "type " + t.Identifier() }
func (t *Type) Location() Location    { return Location{File: t.File, Line: t.Line} }
func (t *Type) Module() string        { return t.ModulePath }

// TypeMappings returns the declared mappings, or identity -> Name when none were given.
func (t *Type) TypeMappings() []Mapping {
	return mappingsOr(t.Mappings, t.Identifier(), t.Name)
}

// MatchesID reports whether any mapping has the given identity.
func (t *Type) MatchesID(id string) bool {
	return matchesID(t.TypeMappings(), id)
}

// InFnModule returns the module path of the input function.
func (t *Type) InFnModule() string {
	if t.InFnModulePath != "" {
		return t.InFnModulePath
	}
	return t.ModulePath
}

// OutFnModule returns the module path of the output function.
func (t *Type) OutFnModule() string {
	if t.OutFnModulePath != "" {
		return t.OutFnModulePath
	}
	return t.ModulePath
}

// Converts reports whether fn is this type's input or output function.
func (t *Type) Converts(fn *Function) bool {
	return (fn.ModulePath == t.InFnModule() && fn.Named(t.InFn)) ||
		(fn.ModulePath == t.OutFnModule() && fn.Named(t.OutFn))
}

// Validate checks required fields.
func (t *Type) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("type at %s: name is required", t.Location())
	}
	if t.InFn == "" || t.OutFn == "" {
		return fmt.Errorf("type `%s` (%s): in_fn and out_fn are required", t.Identifier(), t.Location())
	}
	return nil
}

// ToSQL renders the shell type, both conversion functions, then the full type.
// The four statements always appear in this order.
func (t *Type) ToSQL(ctx Context) (string, error) {
	in, ok := ctx.LookupFunction(t.InFnModule(), t.InFn)
	if !ok {
		return "", fmt.Errorf("type `%s` (%s): input function `%s` not found", t.Identifier(), t.Location(), JoinPath(t.InFnModule(), t.InFn))
	}
	out, ok := ctx.LookupFunction(t.OutFnModule(), t.OutFn)
	if !ok {
		return "", fmt.Errorf("type `%s` (%s): output function `%s` not found", t.Identifier(), t.Location(), JoinPath(t.OutFnModule(), t.OutFn))
	}

	inSQL, err := in.definition(ctx)
	if err != nil {
		return "", err
	}
	outSQL, err := out.definition(ctx)
	if err != nil {
		return "", err
	}

	prefix := ctx.SchemaPrefix(t)
	hdr := header(t.Location(), t.Identifier())
	shell := hdr + fmt.Sprintf("CREATE TYPE %s%s;", prefix, t.Name)
	full := hdr + fmt.Sprintf("CREATE TYPE %s%s (\n"+
		"\tINTERNALLENGTH = variable,\n"+
		"\tINPUT = %s%s, /* %s */\n"+
		"\tOUTPUT = %s%s, /* %s */\n"+
		"\tSTORAGE = extended\n"+
		");",
		prefix, t.Name,
		ctx.SchemaPrefix(in), quoteIdent(in.Name), in.Identifier(),
		ctx.SchemaPrefix(out), quoteIdent(out.Name), out.Identifier())

	return strings.Join([]string{shell, inSQL, outSQL, full}, "\n\n"), nil
}

// Enum is a user-defined enumerated type.
type Enum struct {
	Name       string `yaml:"name"`
	ModulePath string `yaml:"module_path"`
	// FullPath defaults to ModulePath::Name.
	FullPath string    `yaml:"full_path,omitempty"`
	File     string    `yaml:"file,omitempty"`
	Line     int       `yaml:"line,omitempty"`
	Mappings []Mapping `yaml:"mappings,omitempty"`
	Variants []string  `yaml:"variants"`
}

func (e *Enum) Kind() Kind { return KindEnum }

func (e *Enum) Identifier() string {
	if e.FullPath != "" {
		return e.FullPath
	}
	return JoinPath(e.ModulePath, e.Name)
}

func (e *Enum) DotIdentifier() string { return "enum " + e.Identifier() }
func (e *Enum) Location() Location    { return Location{File: e.File, Line: e.Line} }
func (e *Enum) Module() string        { return e.ModulePath }

// TypeMappings returns the declared mappings, or identity -> Name when none were given.
func (e *Enum) TypeMappings() []Mapping {
	return mappingsOr(e.Mappings, e.Identifier(), e.Name)
}

// MatchesID reports whether any mapping has the given identity.
func (e *Enum) MatchesID(id string) bool {
	return matchesID(e.TypeMappings(), id)
}

// Validate checks required fields.
func (e *Enum) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("enum at %s: name is required", e.Location())
	}
	if len(e.Variants) == 0 {
		return fmt.Errorf("enum `%s` (%s): at least one variant is required", e.Identifier(), e.Location())
	}
	return nil
}

func (e *Enum) ToSQL(ctx Context) (string, error) {
	labels := make([]string, 0, len(e.Variants))
	for _, v := range e.Variants {
		labels = append(labels, "\t"+quoteLiteral(v))
	}
	return header(e.Location(), e.Identifier()) +
		fmt.Sprintf("CREATE TYPE %s%s AS ENUM (\n%s\n);", ctx.SchemaPrefix(e), e.Name, strings.Join(labels, ",\n")), nil
}

// BuiltinType stands in for a type that needs no CREATE statement but must
// exist as a graph node. It is keyed by literal type text.
type BuiltinType struct {
	Text string `yaml:"text"`
}

func (b *BuiltinType) Kind() Kind                      { return KindBuiltinType }
func (b *BuiltinType) Identifier() string              { return b.Text }
func (b *BuiltinType) DotIdentifier() string           { return "preexisting type " + b.Text }
func (b *BuiltinType) Location() Location              { return Location{} }
func (b *BuiltinType) Module() string                  { return "" }
func (b *BuiltinType) ToSQL(_ Context) (string, error) { return "", nil }

func mappingsOr(ms []Mapping, id, sql string) []Mapping {
	if len(ms) > 0 {
		return ms
	}
	return []Mapping{{ID: id, SQL: sql}}
}

func matchesID(ms []Mapping, id string) bool {
	for _, m := range ms {
		if m.ID == id {
			return true
		}
	}
	return false
}
