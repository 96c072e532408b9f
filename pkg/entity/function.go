package entity

import (
	"fmt"
	"strings"
)

// Argument is one positional function argument.
type Argument struct {
	// Name is the argument pattern name.
	Name    string  `yaml:"name"`
	Type    TypeRef `yaml:"type"`
	Default string  `yaml:"default,omitempty"`
	// Optional arguments accept NULL, which disables the STRICT upgrade.
	Optional bool `yaml:"optional,omitempty"`
	Variadic bool `yaml:"variadic,omitempty"`
}

// Column is a named column of a table-returning function.
type Column struct {
	Name string  `yaml:"name"`
	Type TypeRef `yaml:"type"`
}

// ReturnKind is the shape of a function's result.
type ReturnKind int

// Return shapes.
const (
	ReturnsNone ReturnKind = iota
	ReturnsType
	ReturnsSetOf
	ReturnsTable
	ReturnsTrigger
)

// Returning describes a function result. At most one field is set; none means void.
type Returning struct {
	Type    *TypeRef `yaml:"type,omitempty"`
	SetOf   *TypeRef `yaml:"setof,omitempty"`
	Table   []Column `yaml:"table,omitempty"`
	Trigger bool     `yaml:"trigger,omitempty"`
}

// Kind returns the result shape.
func (r Returning) Kind() ReturnKind {
	switch {
	case r.Type != nil:
		return ReturnsType
	case r.SetOf != nil:
		return ReturnsSetOf
	case len(r.Table) > 0:
		return ReturnsTable
	case r.Trigger:
		return ReturnsTrigger
	}
	return ReturnsNone
}

// Refs returns every type the result refers to.
func (r Returning) Refs() []TypeRef {
	switch r.Kind() {
	case ReturnsType:
		return []TypeRef{*r.Type}
	case ReturnsSetOf:
		return []TypeRef{*r.SetOf}
	case ReturnsTable:
		out := make([]TypeRef, 0, len(r.Table))
		for _, c := range r.Table {
			out = append(out, c.Type)
		}
		return out
	}
	return nil
}

func (r Returning) validate() error {
	set := 0
	if r.Type != nil {
		set++
	}
	if r.SetOf != nil {
		set++
	}
	if len(r.Table) > 0 {
		set++
	}
	if r.Trigger {
		set++
	}
	if set > 1 {
		return fmt.Errorf("returns must set at most one of type, setof, table, trigger")
	}
	return nil
}

// Volatility values.
const (
	Immutable = "immutable"
	Stable    = "stable"
	Volatile  = "volatile"
)

// Parallel safety values.
const (
	ParallelSafe       = "safe"
	ParallelUnsafe     = "unsafe"
	ParallelRestricted = "restricted"
)

// FunctionAttrs are the extern attributes of a function.
type FunctionAttrs struct {
	CreateOrReplace bool   `yaml:"create_or_replace,omitempty"`
	Volatility      string `yaml:"volatility,omitempty"`
	Strict          bool   `yaml:"strict,omitempty"`
	Parallel        string `yaml:"parallel,omitempty"`
	Cost            string `yaml:"cost,omitempty"`
	// Raw is appended to the attribute line verbatim.
	Raw      string           `yaml:"raw,omitempty"`
	Requires []PositioningRef `yaml:"requires,omitempty"`
}

func (a FunctionAttrs) validate() error {
	switch a.Volatility {
	case "", Immutable, Stable, Volatile:
	default:
		return fmt.Errorf("invalid volatility %q, must be one of: immutable, stable, volatile", a.Volatility)
	}
	if err := validParallel(a.Parallel); err != nil {
		return err
	}
	return nil
}

func validParallel(p string) error {
	switch p {
	case "", ParallelSafe, ParallelUnsafe, ParallelRestricted:
		return nil
	}
	return fmt.Errorf("invalid parallel %q, must be one of: safe, unsafe, restricted", p)
}

// Operator is SQL operator metadata declared alongside a function.
type Operator struct {
	Symbol     string `yaml:"symbol"`
	Commutator string `yaml:"commutator,omitempty"`
	Negator    string `yaml:"negator,omitempty"`
	Restrict   string `yaml:"restrict,omitempty"`
	Join       string `yaml:"join,omitempty"`
	Hashes     bool   `yaml:"hashes,omitempty"`
	Merges     bool   `yaml:"merges,omitempty"`
}

// Function is an extern function exported to SQL.
type Function struct {
	// Name is the SQL name, which may be an alias.
	Name string `yaml:"name"`
	// UnaliasedName is the symbol name in the shared library. Defaults to Name.
	UnaliasedName string `yaml:"unaliased_name,omitempty"`
	ModulePath    string `yaml:"module_path"`
	// FullPath defaults to ModulePath::UnaliasedName.
	FullPath   string        `yaml:"full_path,omitempty"`
	File       string        `yaml:"file,omitempty"`
	Line       int           `yaml:"line,omitempty"`
	Schema     string        `yaml:"schema,omitempty"`
	SearchPath []string      `yaml:"search_path,omitempty"`
	Args       []Argument    `yaml:"args,omitempty"`
	Returns    Returning     `yaml:"returns,omitempty"`
	Attrs      FunctionAttrs `yaml:"attrs,omitempty"`
	Operator   *Operator     `yaml:"operator,omitempty"`
}

func (f *Function) Kind() Kind { return KindFunction }

func (f *Function) Identifier() string {
	if f.FullPath != "" {
		return f.FullPath
	}
	return JoinPath(f.ModulePath, f.SymbolName())
}

func (f *Function) DotIdentifier() string { return "fn " + f.Identifier() }
func (f *Function) Location() Location    { return Location{File: f.File, Line: f.Line} }
func (f *Function) Module() string        { return f.ModulePath }

// SymbolName is the unaliased name, falling back to Name.
func (f *Function) SymbolName() string {
	if f.UnaliasedName != "" {
		return f.UnaliasedName
	}
	return f.Name
}

// Named reports whether name matches the SQL or unaliased name.
func (f *Function) Named(name string) bool {
	return f.Name == name || f.SymbolName() == name
}

// ArgRefs returns the argument types in order.
func (f *Function) ArgRefs() []TypeRef {
	out := make([]TypeRef, 0, len(f.Args))
	for _, a := range f.Args {
		out = append(out, a.Type)
	}
	return out
}

// Strict reports whether the function renders as STRICT. A function with no
// optional arguments is upgraded to STRICT.
func (f *Function) Strict() bool {
	if f.Attrs.Strict {
		return true
	}
	for _, a := range f.Args {
		if a.Optional {
			return false
		}
	}
	return true
}

// Validate checks attribute values and operator arity.
func (f *Function) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("function at %s: name is required", f.Location())
	}
	if err := f.Attrs.validate(); err != nil {
		return fmt.Errorf("function `%s` (%s): %w", f.Identifier(), f.Location(), err)
	}
	if err := f.Returns.validate(); err != nil {
		return fmt.Errorf("function `%s` (%s): %w", f.Identifier(), f.Location(), err)
	}
	for i, a := range f.Args {
		if a.Variadic && i != len(f.Args)-1 {
			return fmt.Errorf("function `%s` (%s): only the last argument can be variadic", f.Identifier(), f.Location())
		}
	}
	if f.Operator != nil {
		if f.Operator.Symbol == "" {
			return fmt.Errorf("function `%s` (%s): operator symbol is required", f.Identifier(), f.Location())
		}
		if len(f.Args) != 2 {
			return fmt.Errorf("function `%s` (%s): operator %s requires exactly two arguments, found %d",
				f.Identifier(), f.Location(), f.Operator.Symbol, len(f.Args))
		}
	}
	return nil
}

// ToSQL renders the function, or nothing when a type inlines it as a conversion function.
func (f *Function) ToSQL(ctx Context) (string, error) {
	if _, ok := ctx.ConversionOwner(f); ok {
		return "", nil
	}
	return f.definition(ctx)
}

func (f *Function) definition(ctx Context) (string, error) {
	var b strings.Builder
	b.WriteString(header(f.Location(), f.Identifier()))
	listComment(&b, "requires", refStrings(f.Attrs.Requires))

	create := "CREATE"
	if f.Attrs.CreateOrReplace {
		create = "CREATE OR REPLACE"
	}
	fmt.Fprintf(&b, "%s FUNCTION %s%s(", create, ctx.SchemaPrefix(f), quoteIdent(f.Name))

	if len(f.Args) > 0 {
		b.WriteString("\n")
		for i, a := range f.Args {
			sqlType, err := ctx.SQLType(f, a.Type)
			if err != nil {
				return "", err
			}
			variadic := ""
			if a.Variadic {
				variadic = "VARIADIC "
			}
			def := ""
			if a.Default != "" {
				def = " DEFAULT " + a.Default
			}
			fmt.Fprintf(&b, "\t%s %s%s%s%s/* %s */\n", quoteIdent(a.Name), variadic, sqlType, def, sep(i, len(f.Args)), a.Type.Text)
		}
	}
	b.WriteString(") ")

	returns, err := f.returns(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString(returns + "\n")

	if attrs := f.attributes(); attrs != "" {
		b.WriteString(attrs + "\n")
	}
	if len(f.SearchPath) > 0 {
		fmt.Fprintf(&b, "SET search_path TO %s\n", strings.Join(f.SearchPath, ", "))
	}
	fmt.Fprintf(&b, "LANGUAGE c\nAS '%s', '%s_wrapper';", ctx.ModulePathname(), f.SymbolName())

	if f.Operator != nil {
		op, err := f.operator(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString("\n\n" + op)
	}
	return b.String(), nil
}

func (f *Function) returns(ctx Context) (string, error) {
	switch f.Returns.Kind() {
	case ReturnsType, ReturnsSetOf:
		ref := f.Returns.Refs()[0]
		sqlType, err := ctx.SQLType(f, ref)
		if err != nil {
			return "", err
		}
		setof := ""
		if f.Returns.Kind() == ReturnsSetOf {
			setof = "SETOF "
		}
		return fmt.Sprintf("RETURNS %s%s /* %s */", setof, sqlType, ref.Text), nil
	case ReturnsTable:
		var b strings.Builder
		b.WriteString("RETURNS TABLE (")
		for i, c := range f.Returns.Table {
			sqlType, err := ctx.SQLType(f, c.Type)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "\n\t%s %s%s/* %s */", quoteIdent(c.Name), sqlType, sep(i, len(f.Returns.Table)), c.Type.Text)
		}
		b.WriteString("\n)")
		return b.String(), nil
	case ReturnsTrigger:
		return "RETURNS trigger", nil
	}
	return "RETURNS void", nil
}

func (f *Function) attributes() string {
	var attrs []string
	if f.Attrs.Volatility != "" {
		attrs = append(attrs, strings.ToUpper(f.Attrs.Volatility))
	}
	if f.Strict() {
		attrs = append(attrs, "STRICT")
	}
	if f.Attrs.Parallel != "" {
		attrs = append(attrs, "PARALLEL "+strings.ToUpper(f.Attrs.Parallel))
	}
	if f.Attrs.Cost != "" {
		attrs = append(attrs, "COST "+f.Attrs.Cost)
	}
	if f.Attrs.Raw != "" {
		attrs = append(attrs, f.Attrs.Raw)
	}
	return strings.Join(attrs, " ")
}

func (f *Function) operator(ctx Context) (string, error) {
	op := f.Operator
	if len(f.Args) != 2 {
		return "", fmt.Errorf("operator %s on `%s` (%s) requires exactly two arguments, found %d",
			op.Symbol, f.Identifier(), f.Location(), len(f.Args))
	}
	left, err := ctx.SQLType(f, f.Args[0].Type)
	if err != nil {
		return "", err
	}
	right, err := ctx.SQLType(f, f.Args[1].Type)
	if err != nil {
		return "", err
	}

	var optionals []string
	if op.Commutator != "" {
		optionals = append(optionals, "\tCOMMUTATOR = "+op.Commutator)
	}
	if op.Negator != "" {
		optionals = append(optionals, "\tNEGATOR = "+op.Negator)
	}
	if op.Restrict != "" {
		optionals = append(optionals, "\tRESTRICT = "+op.Restrict)
	}
	if op.Join != "" {
		optionals = append(optionals, "\tJOIN = "+op.Join)
	}
	if op.Hashes {
		optionals = append(optionals, "\tHASHES")
	}
	if op.Merges {
		optionals = append(optionals, "\tMERGES")
	}

	var b strings.Builder
	b.WriteString(header(f.Location(), f.Identifier()))
	fmt.Fprintf(&b, "CREATE OPERATOR %s (\n", op.Symbol)
	fmt.Fprintf(&b, "\tPROCEDURE=%s%s,\n", ctx.SchemaPrefix(f), quoteIdent(f.Name))
	fmt.Fprintf(&b, "\tLEFTARG=%s, /* %s */\n", left, f.Args[0].Type.Text)
	comma := ""
	if len(optionals) > 0 {
		comma = ","
	}
	fmt.Fprintf(&b, "\tRIGHTARG=%s%s /* %s */\n", right, comma, f.Args[1].Type.Text)
	if len(optionals) > 0 {
		b.WriteString(strings.Join(optionals, ",\n") + "\n")
	}
	b.WriteString(");")
	return b.String(), nil
}

// sep separates list items: a comma between items, a space after the last one.
func sep(i, n int) string {
	if i < n-1 {
		return ", "
	}
	return " "
}
